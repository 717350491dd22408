// ABOUTME: Interactive chat loop: roster, peer selection, live conversation view
// ABOUTME: Adapts readline-style input with slash commands and color rendering

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hariharan-cs21/chat-ui/internal/api"
	"github.com/hariharan-cs21/chat-ui/internal/auth"
	"github.com/hariharan-cs21/chat-ui/internal/chat"
	"github.com/hariharan-cs21/chat-ui/internal/config"
	"github.com/hariharan-cs21/chat-ui/internal/transport"
)

func newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runChat(ctx)
		},
	}
}

// chatUI holds what the interactive loop needs alongside the session.
type chatUI struct {
	session *chat.Session
	peers   []chat.User // roster minus the local user, stable order
}

func runChat(ctx context.Context) error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	token, err := auth.LoadToken()
	if err != nil {
		if errors.Is(err, auth.ErrNoToken) {
			return fmt.Errorf("not logged in: run `chat-ui login` first")
		}
		return err
	}

	ident, err := auth.ParseIdentity(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return fmt.Errorf("session expired: run `chat-ui login` again")
		}
		return fmt.Errorf("reading credential: %w", err)
	}

	client := api.New(cfg.Server.APIBaseURL, token, logger)

	// One-shot roster fetch. The list includes the local user; keep its
	// entry for display and filter it out of the peer list.
	users, err := client.Users(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	local := chat.User{ID: ident.UserID}
	var peers []chat.User
	for _, u := range users {
		if u.ID == ident.UserID {
			local = u
			continue
		}
		peers = append(peers, u)
	}

	notify := func(msg string) {
		color.Yellow("[!] %s", msg)
	}

	// Transport-establishment failure is non-fatal: the session
	// proceeds Disconnected with presence and live messages inert.
	var live chat.LiveTransport
	conn, err := transport.Dial(ctx, cfg.Server.SocketURL, ident.UserID, logger)
	if err != nil {
		logger.Warn("live connection unavailable", "error", err)
		notify("Live connection unavailable; presence and incoming messages are disabled")
	} else {
		live = conn
	}

	session := chat.NewSession(local, live, client, notify, logger)
	defer session.Close()

	ui := &chatUI{session: session, peers: peers}

	session.OnInboundMessage(func(m chat.Message) {
		// Only the active conversation renders live; other events stay
		// in the timeline and show up via the view filter later.
		if m.Sender == session.SelectedPeer() {
			ui.renderMessage(m)
		}
	})

	name := local.Username
	if name == "" {
		name = local.ID
	}
	color.Cyan("chat-ui — logged in as %s (%s)", name, session.ConnectionState())
	fmt.Println("Type /help for commands. Ctrl+C to quit.")
	fmt.Println()
	ui.printUsers()

	return ui.loop(ctx)
}

func (ui *chatUI) loop(ctx context.Context) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		if peer, ok := ui.peerByID(ui.session.SelectedPeer()); ok {
			fmt.Printf("[%s]> ", peer.Username)
		} else {
			fmt.Print("> ")
		}

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch {
		case input == "/quit" || input == "/exit" || input == "/q":
			return nil

		case input == "/help":
			printHelp()

		case input == "/users":
			ui.printUsers()

		case strings.HasPrefix(input, "/select"):
			arg := strings.TrimSpace(strings.TrimPrefix(input, "/select"))
			ui.selectPeer(ctx, arg)

		case strings.HasPrefix(input, "/attach"):
			arg := strings.TrimSpace(strings.TrimPrefix(input, "/attach"))
			if arg == "" {
				_, file := ui.session.Draft()
				if file == "" {
					fmt.Println("Usage: /attach <file>")
				} else {
					ui.session.Attach("")
					fmt.Println("Attachment cleared")
				}
				continue
			}
			if _, err := os.Stat(arg); err != nil {
				color.Yellow("[!] Cannot read %s", arg)
				continue
			}
			ui.session.Attach(arg)
			fmt.Printf("Attached %s (sent with your next message)\n", arg)

		case input == "/history":
			ui.printView()

		default:
			ui.send(ctx, input)
		}
	}
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /users           List users and who is online")
	fmt.Println("  /select <n>      Select a conversation by roster number or username")
	fmt.Println("  /attach <file>   Stage a file for the next send (no arg clears)")
	fmt.Println("  /history         Reprint the active conversation")
	fmt.Println("  /help            Show this help")
	fmt.Println("  /quit            Exit")
	fmt.Println("Anything else is sent to the selected user.")
}

func (ui *chatUI) printUsers() {
	if len(ui.peers) == 0 {
		fmt.Println("Nobody else is registered yet.")
		return
	}

	fmt.Println("Users:")
	for i, u := range ui.peers {
		badge := color.HiBlackString("○")
		if ui.session.IsOnline(u.ID) {
			badge = color.GreenString("●")
		}
		fmt.Printf("  %2d %s %s %s\n", i+1, badge, u.Username, color.HiBlackString("<"+u.Email+">"))
	}
}

func (ui *chatUI) selectPeer(ctx context.Context, arg string) {
	if arg == "" {
		fmt.Println("Usage: /select <number or username>")
		return
	}

	var peer chat.User
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(ui.peers) {
		peer = ui.peers[n-1]
	} else {
		found := false
		for _, u := range ui.peers {
			if strings.EqualFold(u.Username, arg) {
				peer = u
				found = true
				break
			}
		}
		if !found {
			color.Yellow("[!] No user %q", arg)
			return
		}
	}

	ui.session.SelectPeer(peer.ID)
	fmt.Printf("Loading conversation with %s...\n", peer.Username)

	// Wait for the one-shot history fetch; a failed fetch just leaves
	// the view empty.
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(30 * time.Second)
	for ui.session.Loading() {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			color.Yellow("[!] Still loading; messages will appear once the fetch finishes")
			return
		case <-ticker.C:
		}
	}

	ui.printView()
}

func (ui *chatUI) printView() {
	peerID := ui.session.SelectedPeer()
	if peerID == "" {
		fmt.Println("Select a user to start chatting (/select).")
		return
	}

	view := ui.session.ViewFor(peerID)
	if len(view) == 0 {
		fmt.Println(color.HiBlackString("No messages yet."))
		return
	}

	fmt.Println(strings.Repeat("-", 60))
	for _, m := range view {
		ui.renderMessage(m)
	}
	fmt.Println(strings.Repeat("-", 60))
}

func (ui *chatUI) send(ctx context.Context, text string) {
	ui.session.SetInput(text)

	_, file := ui.session.Draft()
	if err := ui.session.Submit(ctx); err != nil {
		switch {
		case errors.Is(err, chat.ErrNoPeerSelected):
			fmt.Println("Select a user first (/select).")
		case errors.Is(err, chat.ErrEmptyDraft):
			// Nothing to do
		default:
			// Attachment failures already notified; nothing was sent.
		}
		return
	}

	if file != "" {
		// Awaited upload: the persisted message is the last view entry.
		view := ui.session.ActiveView()
		if len(view) > 0 {
			ui.renderMessage(view[len(view)-1])
		}
		return
	}

	// Optimistic echo for the fire-and-forget path.
	view := ui.session.ActiveView()
	if len(view) > 0 {
		ui.renderMessage(view[len(view)-1])
	}
}

func (ui *chatUI) renderMessage(m chat.Message) {
	name := "You"
	nameColor := color.New(color.FgGreen)
	if m.Sender != ui.session.LocalUser().ID {
		nameColor = color.New(color.FgBlue)
		if peer, ok := ui.peerByID(m.Sender); ok {
			name = peer.Username
		} else {
			name = m.Sender
		}
	}

	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	line := fmt.Sprintf("%s %s %s",
		nameColor.Sprint(name),
		color.HiBlackString(ts.Local().Format("15:04")),
		m.Content,
	)
	if m.FileURL != "" {
		line += " " + color.CyanString("[file] %s", m.FileURL)
	}
	fmt.Println(line)
}

func (ui *chatUI) peerByID(id string) (chat.User, bool) {
	if id == "" {
		return chat.User{}, false
	}
	for _, u := range ui.peers {
		if u.ID == id {
			return u, true
		}
	}
	return chat.User{}, false
}
