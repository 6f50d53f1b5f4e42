package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/regscout/regscout/internal/config"
	"github.com/regscout/regscout/internal/domain/chat/models"
	"github.com/regscout/regscout/internal/services"
	"github.com/regscout/regscout/internal/services/chat"
	"github.com/regscout/regscout/internal/services/session"
	"github.com/regscout/regscout/pkg/logger"
)

var (
	sessionID = flag.String("session", "", "Resume an existing session id")
	verbose   = flag.Bool("verbose", false, "Write service logs to stderr")
)

var (
	boldGreen = color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan  = color.New(color.FgCyan, color.Bold).SprintFunc()
	faint     = color.New(color.Faint).SprintFunc()
	red       = color.New(color.FgRed).SprintFunc()
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logOutput := io.Discard
	if *verbose {
		logOutput = os.Stderr
	}
	logger.Init(logger.Options{Environment: "development", Output: logOutput})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := services.InitializeServices(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer svc.Close()

	sess, err := openSession(ctx, svc.GetSessionService(), *sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, os.Stdin, os.Stdout, svc.GetChatService(), sess); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openSession(ctx context.Context, sessionService *session.Service, id string) (*session.Session, error) {
	if id == "" {
		return sessionService.Start(ctx)
	}
	return sessionService.Resume(ctx, id)
}

// run is the read-eval-print loop: one chat turn per input line until EOF,
// "exit" or cancellation.
func run(ctx context.Context, in io.Reader, out io.Writer, chatService chat.Service, sess *session.Session) error {
	fmt.Fprintln(out, boldGreen("regscout - FDA guidance and 21 CFR assistant"))
	fmt.Fprintln(out, faint("Session "+sess.ID+". Type 'exit' or press Ctrl+D to quit."))
	fmt.Fprintln(out)

	for _, msg := range chatService.History(ctx, sess) {
		printMessage(out, msg)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, boldGreen("You: "))

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}
		if strings.EqualFold(line, "exit") {
			return nil
		}

		fmt.Fprintln(out, faint("Searching..."))
		reply, err := chatService.Send(ctx, sess, line)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, red("Error: "+err.Error()))
			fmt.Fprintln(out)
			continue
		}

		printMessage(out, reply)
	}
}

func printMessage(out io.Writer, msg models.Message) {
	if msg.Role == models.RoleUser {
		fmt.Fprintf(out, "%s%s\n", boldGreen("You: "), msg.Content)
		return
	}
	fmt.Fprintf(out, "%s%s\n\n", boldCyan("Assistant: "), msg.Content)
}
