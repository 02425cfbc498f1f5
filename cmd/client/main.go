package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "wirechat-client: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		addr    string
		user    string
		token   string
		noColor bool
	)

	cmd := &cobra.Command{
		Use:           "wirechat-client",
		Short:         "Terminal client for the wirechat relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if noColor {
				color.Disable()
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, addr, user, token, os.Stdin, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "ws://localhost:5000/ws", "WebSocket address")
	flags.StringVarP(&user, "user", "u", "cli-user", "username")
	flags.StringVar(&token, "token", "", "token from /login, if the server requires one")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	return cmd
}

// frame mirrors proto.Outbound with a raw payload for decoding.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func run(ctx context.Context, addr, user, token string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeLogin, proto.LoginData{Username: user, Token: token}); err != nil {
		return err
	}

	fmt.Fprintf(out, "Connected to %s as %s\n", addr, user)
	fmt.Fprintln(out, "Type messages and press Enter to send. /msg <user> <text> for private messages. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn, out)
	}()

	writeLoop(ctx, conn, user, in, out)
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, out io.Writer) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			fmt.Fprintf(out, "read error: %v\n", err)
			return
		}

		if line, ok := render(f); ok {
			fmt.Fprintln(out, line)
		}
	}
}

// render formats one server frame for the terminal.
func render(f frame) (string, bool) {
	switch f.Type {
	case proto.OutboundTypeMessage, proto.OutboundTypePrivateMessage:
		var msg proto.ChatMessage
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return "", false
		}
		if msg.Sender == core.SystemSender {
			return color.Yellow.Sprintf("* %s", msg.Message), true
		}
		line := fmt.Sprintf("[%s] %s: %s", msg.Timestamp, color.Bold.Sprint(msg.Sender), msg.Message)
		if f.Type == proto.OutboundTypePrivateMessage {
			return color.Magenta.Sprint("(private) ") + line, true
		}
		return line, true
	case proto.OutboundTypeConnectedUsers:
		var users []string
		if err := json.Unmarshal(f.Data, &users); err != nil {
			return "", false
		}
		return color.Cyan.Sprintf("online: %s", strings.Join(users, ", ")), true
	default:
		return fmt.Sprintf("type=%s data=%s", f.Type, f.Data), true
	}
}

// parseLine turns an input line into an inbound event. Blank lines yield ok=false.
func parseLine(user, line string) (typ string, data any, ok bool) {
	text := strings.TrimSpace(line)
	if text == "" {
		return "", nil, false
	}

	if rest, found := strings.CutPrefix(text, "/msg "); found {
		recipient, body, _ := strings.Cut(strings.TrimSpace(rest), " ")
		return proto.InboundTypePrivateMessage, proto.PrivateMessageData{
			Recipient: recipient,
			Message:   strings.TrimSpace(body),
		}, true
	}

	return proto.InboundTypeMessage, proto.MessageData{Sender: user, Message: text}, true
}

func writeLoop(ctx context.Context, conn *websocket.Conn, user string, in io.Reader, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			typ, data, ok := parseLine(user, line)
			if !ok {
				continue
			}
			if err := send(ctx, conn, typ, data); err != nil {
				fmt.Fprintf(out, "send error: %v\n", err)
				return
			}
		}
	}
}
