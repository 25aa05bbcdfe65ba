package main

import (
	"bufio"
	"chat-relay/domain"
	chaterrors "chat-relay/errors"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// withMessenger runs fn against a freshly started environment and stops it
// afterwards.
func withMessenger(cmd *cobra.Command, fn func(ctx context.Context, env *environment, out renderer) error) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	out := renderer{out: cmd.OutOrStdout(), colours: config.Colours}
	env, err := newEnvironment(cmd.Context(), config, out.Change)
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(cmd.Context(), env, out)
}

func newLoginCommand() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMessenger(cmd, func(ctx context.Context, env *environment, out renderer) error {
				err := env.messenger.Login(ctx, email, password)
				if errors.Is(err, chaterrors.ErrVerificationRequired) {
					return fmt.Errorf("%w: run `messenger verify --email %s --code <code>`", err, email)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(out.out, "Logged in")
				chats, err := env.messenger.Chats(ctx)
				if err != nil {
					return err
				}
				out.Chats(chats)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newRegisterCommand() *cobra.Command {
	var email, password, displayName string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is sent by email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMessenger(cmd, func(ctx context.Context, env *environment, out renderer) error {
				if err := env.messenger.Register(ctx, email, password, displayName); err != nil {
					return err
				}
				fmt.Fprintf(out.out, "Account created, check %s for the verification code\n", email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&displayName, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newVerifyCommand() *cobra.Command {
	var email, code string
	var resend bool
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an account with the emailed code",
		Example: `  messenger verify --email ann@example.com --code 123456
  messenger verify --email ann@example.com --resend`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMessenger(cmd, func(ctx context.Context, env *environment, out renderer) error {
				if resend {
					if err := env.messenger.RequestVerify(ctx, email); err != nil {
						return err
					}
					fmt.Fprintln(out.out, "Verification code sent")
					return nil
				}
				if err := env.messenger.Verify(ctx, email, code); err != nil {
					return err
				}
				fmt.Fprintln(out.out, "Account verified, you can log in")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&code, "code", "", "Verification code")
	cmd.Flags().BoolVar(&resend, "resend", false, "Ask for a new code")
	_ = cmd.MarkFlagRequired("email")
	cmd.MarkFlagsOneRequired("code", "resend")
	return cmd
}

func newChatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List my chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMessenger(cmd, func(ctx context.Context, env *environment, out renderer) error {
				chats, err := env.messenger.Chats(ctx)
				if err != nil {
					return err
				}
				out.Chats(chats)
				return nil
			})
		},
	}
}

func newNewChatCommand() *cobra.Command {
	var title, members string
	var channel bool
	cmd := &cobra.Command{
		Use:   "new-chat",
		Short: "Create a chat or a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMessenger(cmd, func(ctx context.Context, env *environment, out renderer) error {
				if err := env.messenger.CreateChat(ctx, title, channel, members); err != nil {
					return err
				}
				chats, err := env.messenger.Chats(ctx)
				if err != nil {
					return err
				}
				out.Chats(chats)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Chat title")
	cmd.Flags().BoolVar(&channel, "channel", false, "Create a channel instead of a chat")
	cmd.Flags().StringVar(&members, "members", "", "Comma separated member ids")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newWallpaperCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "wallpaper <chat_id> <image>",
		Short: "Set the background image of a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMessenger(cmd, func(_ context.Context, env *environment, out renderer) error {
				if err := env.messenger.SetWallpaper(domain.ChatID(args[0]), args[1]); err != nil {
					return err
				}
				fmt.Fprintln(out.out, "Wallpaper saved")
				return nil
			})
		},
	}
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMessenger(cmd, func(_ context.Context, env *environment, out renderer) error {
				if err := env.messenger.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(out.out, "Logged out")
				return nil
			})
		},
	}
}

func newOpenCommand() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "open <chat_id>",
		Short: "Open a chat and talk in it",
		Long: `Open a chat and talk in it. Every line read on stdin is sent as text.
  /image <path>      upload and send an image, video or file
  /wallpaper <path>  set the chat background
  /quit              leave the chat`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMessenger(cmd, func(ctx context.Context, env *environment, _ renderer) error {
				chatID := domain.ChatID(args[0])
				if title == "" {
					title = chatID.String()
				}
				if err := env.messenger.OpenChat(chatID, title); err != nil {
					return err
				}
				defer func() { _ = env.messenger.CloseChat() }()
				return converse(ctx, env, chatID, cmd.InOrStdin())
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Chat title shown in the header")
	return cmd
}

// converse reads commands from in until EOF, /quit or ctx cancellation.
// Failures are shown through the presentation loop and the conversation
// goes on.
func converse(ctx context.Context, env *environment, chatID domain.ChatID, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
			var err error
			switch command {
			case "/quit":
				return nil
			case "/image":
				err = env.messenger.SendMedia(ctx, strings.TrimSpace(arg))
			case "/wallpaper":
				err = env.messenger.SetWallpaper(chatID, strings.TrimSpace(arg))
			case "":
				continue
			default:
				err = env.messenger.SendText(line)
			}
			if err != nil && !alreadyShown(err) {
				_ = env.messenger.Report(err)
			}
		}
	}
}

// alreadyShown is true for failures that reach the screen on their own: send
// failures come back as SendFailed events and upload failures are reported by
// the messenger.
func alreadyShown(err error) bool {
	var transport *chaterrors.TransportError
	return errors.As(err, &transport) || errors.Is(err, chaterrors.ErrUploadFailed)
}
