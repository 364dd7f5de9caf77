package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newRootCmd(cfg Config, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatctl",
		Short:         "Terminal client for the realtime server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "server base url")
	cmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "bearer token")

	cmd.AddCommand(newLoginCmd(&cfg, out))
	cmd.AddCommand(newListenCmd(&cfg, out))
	cmd.AddCommand(newSendCmd(&cfg, out))
	cmd.AddCommand(newNotificationsCmd(&cfg, out))
	cmd.SetOut(out)
	return cmd
}

func newLoginCmd(cfg *Config, out io.Writer) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Print a bearer token for the given credentials",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := login(cmd.Context(), *cfg, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// listen stays online as userId and prints everything pushed to it.
func newListenCmd(cfg *Config, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "listen <userId>",
		Short: "Go online and print incoming events until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			client, err := identified(ctx, *cfg, out, args[0])
			if err != nil {
				return err
			}
			defer client.Close()

			for {
				f, err := client.Next(ctx)
				if errors.Is(err, context.Canceled) {
					return nil
				}
				if err != nil {
					return err
				}
				client.Print(f)
			}
		},
	}
}

func newSendCmd(cfg *Config, out io.Writer) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send <senderId> <receiverId> <body>",
		Short: "Send one chat message and wait for the server echo",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := identified(ctx, *cfg, out, args[0])
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Emit("sendMessage", map[string]string{
				"senderId":   args[0],
				"receiverId": args[1],
				"body":       args[2],
			}); err != nil {
				return err
			}
			f, err := client.WaitFor(ctx, "message", "error")
			if err != nil {
				return err
			}
			if f.Event == "error" {
				return errors.New("message refused")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the echo")
	return cmd
}

// notifications uses the legacy endpoint, which authenticates every frame with the token.
func newNotificationsCmd(cfg *Config, out io.Writer) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "List notifications and the unread message count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.Token == "" {
				return errors.New("a token is required (--token or FANOUS_TOKEN)")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := Dial(ctx, *cfg, out, "/ws")
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Request(map[string]string{
				"requestType": "NotificationList",
				"token":       cfg.Token,
				"user_token":  cfg.Token,
			}); err != nil {
				return err
			}
			for range 2 {
				f, err := client.Next(ctx)
				if err != nil {
					return err
				}
				client.Print(f)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the answers")
	return cmd
}

// identified dials the event endpoint and waits for the identify ack.
func identified(ctx context.Context, cfg Config, out io.Writer, userID string) (*Client, error) {
	client, err := Dial(ctx, cfg, out, "/socket")
	if err != nil {
		return nil, err
	}
	data := map[string]string{"userId": userID}
	if cfg.Token != "" {
		data["token"] = cfg.Token
	}
	if err := client.Emit("identify", data); err != nil {
		_ = client.Close()
		return nil, err
	}
	f, err := client.WaitFor(ctx, "identified", "error")
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if f.Event == "error" {
		_ = client.Close()
		return nil, fmt.Errorf("identify refused: %s", f.Data)
	}
	return client, nil
}
