// ABOUTME: Line-based terminal client for the chatbot-gateway WebSocket stream
// ABOUTME: Sends each input line as one frame and prints replies with their intent

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/fatih/color"
	"github.com/google/uuid"
)

// frame is any message the gateway pushes on the stream.
type frame struct {
	Reply  string `json:"reply"`
	Error  string `json:"error"`
	Intent *struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
	} `json:"intent"`
	Timestamp string `json:"timestamp"`
}

var (
	botColor    = color.New(color.FgCyan)
	intentColor = color.New(color.FgHiBlack)
	errColor    = color.New(color.FgRed)
	promptColor = color.New(color.FgGreen, color.Bold)
)

func main() {
	server := flag.String("server", "ws://localhost:8000", "Gateway WebSocket base URL")
	session := flag.String("session", "", "Session id (random when empty)")
	flag.Parse()

	sessionID := *session
	if sessionID == "" {
		sessionID = "tui-" + uuid.New().String()[:8]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *server, sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func streamURL(server, sessionID string) string {
	return strings.TrimRight(server, "/") + "/ws/" + url.PathEscape(sessionID)
}

func run(ctx context.Context, server, sessionID string) error {
	dialCtx, cancelDial := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, streamURL(server, sessionID), nil)
	cancelDial()
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Printf("chatbot-tui session %s\n", sessionID)
	fmt.Println("Type a message and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	// The reader goroutine owns stdout for replies; the prompt is reprinted after each one.
	readErr := make(chan error, 1)
	go func() {
		readErr <- readFrames(ctx, conn, os.Stdout)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input := strings.TrimSpace(line)
			switch input {
			case "":
				printPrompt()
				continue
			case "/quit", "/exit", "/q":
				return nil
			case "/help":
				printHelp()
				printPrompt()
				continue
			}

			payload, _ := json.Marshal(map[string]string{"message": input})
			writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Write(writeCtx, websocket.MessageText, payload)
			cancelWrite()
			if err != nil {
				return fmt.Errorf("sending message: %w", err)
			}
		}
	}
}

// readFrames prints every frame until the stream ends.
// A normal close from either side returns nil.
func readFrames(ctx context.Context, conn *websocket.Conn, out io.Writer) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				fmt.Fprintln(out, "\nconnection closed")
				return nil
			}
			return fmt.Errorf("reading stream: %w", err)
		}
		printFrame(out, data)
		printPrompt()
	}
}

func printFrame(out io.Writer, data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		fmt.Fprintf(out, "%s\n", data)
		return
	}

	switch {
	case f.Error != "":
		errColor.Fprintf(out, "[error] %s\n", f.Error)
	case f.Intent != nil:
		botColor.Fprintf(out, "bot: %s\n", f.Reply)
		intentColor.Fprintf(out, "     %s (%.2f)\n", f.Intent.Label, f.Intent.Confidence)
	default:
		botColor.Fprintf(out, "%s\n", f.Reply)
	}
}

func printPrompt() {
	promptColor.Print("> ")
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /help          Show this help")
	fmt.Println("  /quit          Exit the TUI")
	fmt.Println()
	fmt.Println("Anything else is sent to the bot as one message.")
}
