// cmd/authpanel/main.go
//
// Терминальная форма входа/регистрации. Адрес сервера - GENMON_BACKEND_URL,
// данные входа сохраняются в GENMON_AUTH_FILE (по умолчанию ~/.genmon/auth.json).
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"genmon-backend/internal/authpanel"
	"genmon-backend/internal/logger"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultBackendURL = "http://localhost:4000"

func main() {
	_ = godotenv.Load()

	backendURL := os.Getenv("GENMON_BACKEND_URL")
	if backendURL == "" {
		backendURL = defaultBackendURL
	}

	storagePath := os.Getenv("GENMON_AUTH_FILE")
	if storagePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		storagePath = filepath.Join(home, ".genmon", "auth.json")
	}

	log := newLogger()

	storage, err := authpanel.OpenFileStorage(storagePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open credential storage")
	}

	done := make(chan [2]string, 1)
	panel := authpanel.New(backendURL, storage, func(username, token string) {
		done <- [2]string{username, token}
	})
	panel.Log = log

	if !runLoop(context.Background(), panel, bufio.NewReader(os.Stdin), os.Stdout) {
		return
	}

	creds := <-done
	fmt.Printf("Signed in as %s, credentials saved to %s\n", creds[0], storagePath)
}

// newLogger пишет в stderr, чтобы логи не смешивались с формой в stdout
func newLogger() *logrus.Logger {
	return logger.NewWithOutput(os.Getenv("LOG_LEVEL"), os.Stderr)
}

// runLoop повторяет форму до успешной отправки. false - пользователь вышел.
func runLoop(ctx context.Context, p *authpanel.Panel, in *bufio.Reader, out io.Writer) bool {
	p.Probe(ctx)
	fmt.Fprintf(out, "Backend %s: %s\n", p.BaseURL, connectivityLabel(p.BackendConnected))

	for {
		fmt.Fprintf(out, "\n[%s] Enter to continue, 't' to switch mode, 'r' to re-check the backend, 'q' to quit: ", p.Mode)
		choice, err := readLine(in)
		if err != nil {
			return false
		}

		switch strings.ToLower(choice) {
		case "q":
			return false
		case "t":
			p.ToggleMode()
			continue
		case "r":
			p.Probe(ctx)
			fmt.Fprintf(out, "Backend %s: %s\n", p.BaseURL, connectivityLabel(p.BackendConnected))
			continue
		}

		if p.Username, err = prompt(in, out, "Username: "); err != nil {
			return false
		}
		if p.Password, err = prompt(in, out, "Password: "); err != nil {
			return false
		}
		if p.Mode == authpanel.ModeRegister {
			if p.ConfirmPassword, err = prompt(in, out, "Confirm password: "); err != nil {
				return false
			}
		}

		if err := p.Submit(ctx); err != nil {
			fmt.Fprintln(out, "Error:", p.Error)
			continue
		}

		fmt.Fprintln(out, p.Success)
		return true
	}
}

func connectivityLabel(c authpanel.Connectivity) string {
	if c == authpanel.Connected {
		return "connected"
	}
	return "not connected, make sure the server is running"
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	return readLine(in)
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
