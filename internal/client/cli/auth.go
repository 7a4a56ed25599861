package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

func (a *App) register(ctx context.Context) {
	name, err := getSimpleText(a.reader, "Enter display name", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	email, err := getSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	password, err := getPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	imagePath, err := getSimpleText(a.reader, "Path to profile image", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	var image []byte
	if imagePath != "" {
		image, err = os.ReadFile(imagePath)
		if err != nil {
			log.Printf("could not read image: %v", err)
			return
		}
	}

	if a.session.Register(ctx, name, email, password, image) {
		fmt.Println("Registered. Please log in.")
		return
	}
	fmt.Println("Registration failed:", a.session.State().LastError)
	a.session.ClearError()
}

func (a *App) login(ctx context.Context) {
	prompt := "Enter email"
	prefill, ok := a.session.ConsumeHandoffEmail()
	if ok {
		prompt = fmt.Sprintf("Enter email [%s]", prefill)
	}

	email, err := getSimpleText(a.reader, prompt, os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	if email == "" {
		email = prefill
	}

	password, err := getPassword(os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	if a.session.Login(ctx, email, password) {
		fmt.Println("Logged in.")
		return
	}
	fmt.Println("Login failed:", a.session.State().LastError)
	a.session.ClearError()
}

func (a *App) logout(ctx context.Context) {
	a.session.Logout(ctx)
	if msg := a.session.State().LastError; msg != "" {
		fmt.Println("Logout failed:", msg)
		a.session.ClearError()
		return
	}
	fmt.Println("Logged out.")
}
