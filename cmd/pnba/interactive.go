package main

import (
	"context"
	"fmt"
	"os"

	"github.com/relaykit/pnba/telegram"
)

// interactiveApp drives the menu mode. Phone number and authenticated flag
// live in memory only; nothing here survives across runs.
type interactiveApp struct {
	adapter       *telegram.Adapter
	phone         string
	authenticated bool
}

type menuItem struct {
	number int
	title  string
	action func(app *interactiveApp) bool // returns false to leave the menu
}

func runInteractive(adapter *telegram.Adapter) error {
	app := &interactiveApp{adapter: adapter}
	clearScreen()
	fmt.Println("Starting Telegram PNBA Adapter Interactive Mode")
	fmt.Println(divider())
	app.menuLoop("Main Menu", mainMenu)
	return nil
}

var mainMenu = []menuItem{
	{1, "Set Phone Number", (*interactiveApp).setPhone},
	{2, "Authentication", (*interactiveApp).showAuthMenu},
	{3, "Send Message", (*interactiveApp).sendMessage},
	{4, "Invalidate Session", (*interactiveApp).invalidateSession},
	{5, "Show Status", (*interactiveApp).showStatus},
	{0, "Exit", (*interactiveApp).exit},
}

var authMenu = []menuItem{
	{1, "Send Authorization Code", (*interactiveApp).sendAuthCode},
	{2, "Validate Code", (*interactiveApp).validateCode},
	{3, "Validate Password", (*interactiveApp).validatePassword},
	{0, "Back to Main Menu", func(*interactiveApp) bool { return false }},
}

func (app *interactiveApp) menuLoop(title string, menu []menuItem) {
	for {
		clearScreen()
		fmt.Printf("Telegram PNBA Adapter - %s\n", title)
		fmt.Println(divider())

		if app.phone != "" {
			authed := "No"
			if app.authenticated {
				authed = "Yes"
			}
			fmt.Printf("Phone: %s | Authenticated: %s\n", app.phone, authed)
			fmt.Println(divider())
		}

		for _, item := range menu {
			fmt.Printf("%d. %s\n", item.number, item.title)
		}

		choice := promptString("\nEnter your choice")
		matched := false
		for _, item := range menu {
			if choice == fmt.Sprint(item.number) {
				matched = true
				if !item.action(app) {
					return
				}
				break
			}
		}
		if !matched {
			fmt.Println("Invalid choice. Please try again.")
			pause()
		}
	}
}

func (app *interactiveApp) setPhone() bool {
	clearScreen()
	fmt.Println("Set Phone Number")
	fmt.Println(divider())

	app.phone = promptString("Enter phone number with country code (e.g. +1234567890)")
	fmt.Printf("\nPhone number set to: %s\n", app.phone)
	pause()
	return true
}

func (app *interactiveApp) ensurePhone() string {
	if app.phone == "" {
		fmt.Println("Phone number is not set.")
		app.setPhone()
	}
	return app.phone
}

func (app *interactiveApp) showAuthMenu() bool {
	app.menuLoop("Authentication Menu", authMenu)
	return true
}

func (app *interactiveApp) sendAuthCode() bool {
	clearScreen()
	fmt.Println("Send Authorization Code")
	fmt.Println(divider())

	phone := app.ensurePhone()
	fmt.Printf("Sending authorization code to %s...\n", phone)
	result, err := app.adapter.SendAuthorizationCode(context.Background(), phone)
	if err != nil {
		fmt.Printf("\nFailed to send code: %s\n", err)
	} else {
		fmt.Println()
		printResult(result)
	}
	pause()
	return true
}

func (app *interactiveApp) validateCode() bool {
	clearScreen()
	fmt.Println("Validate Authorization Code")
	fmt.Println(divider())

	phone := app.ensurePhone()
	code := promptString("Enter authorization code received")

	fmt.Println("\nValidating code...")
	result, err := app.adapter.ValidateCodeAndFetchUserInfo(context.Background(), phone, code)
	if err != nil {
		fmt.Printf("\nCode validation failed: %s\n", err)
	} else {
		fmt.Println()
		printResult(result)
		app.authenticated = true
	}
	pause()
	return true
}

func (app *interactiveApp) validatePassword() bool {
	clearScreen()
	fmt.Println("Validate Two-Step Verification Password")
	fmt.Println(divider())

	phone := app.ensurePhone()
	password, err := promptPassword("Enter two-step verification password")
	if err != nil {
		fmt.Printf("\n%s\n", err)
		pause()
		return true
	}

	fmt.Println("\nValidating password...")
	result, err := app.adapter.ValidatePasswordAndFetchUserInfo(context.Background(), phone, password)
	if err != nil {
		fmt.Printf("\nPassword validation failed: %s\n", err)
	} else {
		fmt.Println()
		printResult(result)
		app.authenticated = true
	}
	pause()
	return true
}

func (app *interactiveApp) sendMessage() bool {
	clearScreen()
	fmt.Println("Send Message")
	fmt.Println(divider())

	phone := app.ensurePhone()
	recipient := promptString("Enter recipient (phone number or username)")
	text := promptString("Enter message text")

	fmt.Printf("\nSending message to %s...\n", recipient)
	sent, err := app.adapter.SendMessage(context.Background(), phone, recipient, text)
	if err != nil {
		fmt.Printf("\nFailed to send message: %s\n", err)
	} else {
		fmt.Printf("\nMessage sent: %v\n", sent)
	}
	pause()
	return true
}

func (app *interactiveApp) invalidateSession() bool {
	clearScreen()
	fmt.Println("Invalidate Session")
	fmt.Println(divider())

	phone := app.ensurePhone()
	fmt.Println("\nInvalidating session...")
	invalidated, err := app.adapter.InvalidateSession(context.Background(), phone)
	if err != nil {
		fmt.Printf("\nFailed to invalidate session: %s\n", err)
	} else {
		fmt.Printf("\nSession invalidated: %v\n", invalidated)
		app.authenticated = false
	}
	pause()
	return true
}

func (app *interactiveApp) showStatus() bool {
	clearScreen()
	fmt.Println("Current Session Status")
	fmt.Println(divider())
	phone := app.phone
	if phone == "" {
		phone = "Not set"
	}
	fmt.Printf("Phone Number: %s\n", phone)
	fmt.Printf("Authenticated: %v\n", app.authenticated)
	fmt.Println(divider())
	pause()
	return true
}

func (app *interactiveApp) exit() bool {
	fmt.Println("\nExiting interactive mode...")
	os.Exit(0)
	return false
}

func divider() string {
	return "=================================================="
}

func clearScreen() {
	fmt.Print("\033[2J\033[H")
}

func pause() {
	promptString("\nPress enter to return to the menu...")
}
