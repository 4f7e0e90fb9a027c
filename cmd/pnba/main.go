// Command pnba exercises the Telegram PNBA adapter from the command line.
//
// Each subcommand performs one step of the handshake; an interactive menu
// mode covers the same operations with in-memory state.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/relaykit/pnba"
	"github.com/relaykit/pnba/telegram"
)

var (
	configPath  string
	interactive bool
)

func main() {
	root := &cobra.Command{
		Use:   "pnba",
		Short: "Telegram PNBA adapter command line interface",
		Long: "Telegram PNBA adapter command line interface.\n\n" +
			"This tool allows you to test all operations of the Telegram adapter.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interactive {
				adapter, err := loadAdapter()
				if err != nil {
					return err
				}
				return runInteractive(adapter)
			}
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the module configuration")
	root.Flags().BoolVarP(&interactive, "interactive", "i", false, "start an interactive session")

	root.AddCommand(
		sendCodeCmd(),
		validateCodeCmd(),
		validatePasswordCmd(),
		sendMessageCmd(),
		invalidateSessionCmd(),
		serveCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "An error occurred: %s\n", err)
		os.Exit(1)
	}
}

func loadAdapter() (*telegram.Adapter, error) {
	cfg, err := pnba.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	creds, err := pnba.LoadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	adapter := telegram.NewAdapter(creds, cfg.Sessions.Dir)
	if cfg.Telegram.Debug {
		adapter.NewClient = telegram.NewDebugClient
	}
	return adapter, nil
}

func sendCodeCmd() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "send-code",
		Short: "Send authorization code to the specified phone number",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter()
			if err != nil {
				return err
			}
			phone = ensurePrompted(phone, "Phone number with country code (e.g. +1234567890)")

			fmt.Println("Sending authorization code...")
			result, err := adapter.SendAuthorizationCode(context.Background(), phone)
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number with country code")
	return cmd
}

func validateCodeCmd() *cobra.Command {
	var phone, code string
	cmd := &cobra.Command{
		Use:   "validate-code",
		Short: "Validate authorization code and fetch user info",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter()
			if err != nil {
				return err
			}
			phone = ensurePrompted(phone, "Phone number with country code")
			code = ensurePrompted(code, "Authorization code received")

			fmt.Println("Validating code...")
			result, err := adapter.ValidateCodeAndFetchUserInfo(context.Background(), phone, code)
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number with country code")
	cmd.Flags().StringVar(&code, "code", "", "authorization code received")
	return cmd
}

func validatePasswordCmd() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "validate-password",
		Short: "Validate two-step verification password and fetch user info",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter()
			if err != nil {
				return err
			}
			phone = ensurePrompted(phone, "Phone number with country code")
			password, err := promptPassword("Two-step verification password")
			if err != nil {
				return err
			}

			fmt.Println("Validating password...")
			result, err := adapter.ValidatePasswordAndFetchUserInfo(context.Background(), phone, password)
			if err != nil {
				return err
			}
			return printResult(result)
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number with country code")
	return cmd
}

func sendMessageCmd() *cobra.Command {
	var phone, recipient, text string
	cmd := &cobra.Command{
		Use:   "send-message",
		Short: "Send a message to a recipient",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter()
			if err != nil {
				return err
			}
			phone = ensurePrompted(phone, "Your phone number with country code")
			recipient = ensurePrompted(recipient, "Recipient's phone number or username")
			text = ensurePrompted(text, "Message text to send")

			fmt.Println("Sending message...")
			sent, err := adapter.SendMessage(context.Background(), phone, recipient, text)
			if err != nil {
				return err
			}
			fmt.Printf("Message sent: %v\n", sent)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "your phone number with country code")
	cmd.Flags().StringVar(&recipient, "recipient", "", "recipient's phone number or username")
	cmd.Flags().StringVar(&text, "text", "", "message text to send")
	return cmd
}

func invalidateSessionCmd() *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "invalidate-session",
		Short: "Invalidate a session for a phone number",
		RunE: func(cmd *cobra.Command, args []string) error {
			adapter, err := loadAdapter()
			if err != nil {
				return err
			}
			phone = ensurePrompted(phone, "Phone number to invalidate session for")

			fmt.Println("Invalidating session...")
			invalidated, err := adapter.InvalidateSession(context.Background(), phone)
			if err != nil {
				return err
			}
			fmt.Printf("Session invalidated: %v\n", invalidated)
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "phone number to invalidate session for")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the PNBA HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pnba.LoadConfig(configPath)
			if err != nil {
				return err
			}
			adapter, err := loadAdapter()
			if err != nil {
				return err
			}

			api := pnba.NewAPI(adapter, cfg.Server.JWTSecret)
			fmt.Printf("Serving PNBA API on %s\n", cfg.Server.Addr)
			return http.ListenAndServe(cfg.Server.Addr, api.Handler())
		},
	}
}

func printResult(result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("Result: %s\n", data)
	return nil
}

// ensurePrompted returns the flag value, prompting for it when empty.
func ensurePrompted(value, label string) string {
	if value != "" {
		return value
	}
	return promptString(label)
}

func promptString(label string) string {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptPassword(label string) (string, error) {
	fmt.Printf("%s: ", label)
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(data), nil
}
