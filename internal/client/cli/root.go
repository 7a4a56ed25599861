package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dpetukhov/rosterhub/internal/client/session"
)

func (a *App) getStatus() string {
	s := ""
	if st := a.session.State(); st.UID != "" {
		s = st.UID + " "
	}
	if a.Mode != "" {
		s = s + string(a.Mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) isLoggedIn() bool {
	return a.session.State().Phase == session.Authenticated
}

func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to Rosterhub (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	go func() {
		a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}()

	for {
		fmt.Printf("rh %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: users, more, refresh, whoami, logout, exit")
			} else {
				fmt.Println("Available commands: register, login, exit")
			}
		case "register":
			a.register(ctx)
		case "login":
			a.login(ctx)
		case "logout":
			a.logout(ctx)
		case "users":
			a.listUsers(ctx)
		case "more":
			a.moreUsers(ctx)
		case "refresh":
			a.refreshUsers(ctx)
		case "whoami":
			st := a.session.State()
			if st.UID == "" {
				fmt.Println("Not logged in.")
			} else {
				fmt.Println(st.UID)
			}
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", parts[0])
		}
	}
}
