package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/iguagile/iguagile-tictactoe/client"
	"github.com/iguagile/iguagile-tictactoe/data"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "tictactoe-client handle hostname port",
		Short:         "Play tic-tac-toe against other connected players",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zap.NewNop()
			if debug {
				l, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				logger = l
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return play(ctx, logger, args[0], net.JoinHostPort(args[1], args[2]))
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "log protocol details to stderr")
	return cmd
}

func play(ctx context.Context, logger *zap.Logger, name, address string) error {
	if !data.ValidName(name) {
		return errors.Errorf("invalid handle %q: 1-%d letters, digits or underscores, starting with a letter", name, data.MaxNameLength)
	}

	c := client.New(logger)
	if err := c.DialTCP(ctx, address); err != nil {
		return err
	}
	defer c.Close()

	if err := register(c, name); err != nil {
		return err
	}

	u := newUI(os.Stdout, name)
	u.welcome()
	c.AddReceivedFunc(u.handle)

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case err := <-done:
			if err != nil {
				logger.Debug("receive loop stopped", zap.Error(err))
			}
			if ctx.Err() == nil {
				fmt.Fprintln(os.Stderr, "Server terminated connection")
			}
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}

			m, err := u.parse(line)
			switch {
			case errors.Is(err, errInvalidCommand):
				u.invalid()
			case err != nil:
				u.printf("%s\n", err)
			case m != nil:
				if err := c.Send(m); err != nil {
					return err
				}
			}
		}
	}
}

func register(c *client.Client, name string) error {
	if err := c.Send(&data.InitialConn{Name: name}); err != nil {
		return err
	}

	m, err := c.Receive()
	if err != nil {
		return errors.Wrap(err, "server terminated connection")
	}

	switch m := m.(type) {
	case *data.ConnAccept:
		return nil
	case *data.ConnReject:
		return errors.Errorf("username already in use: %s", m.Name)
	case *data.Error:
		return errors.Errorf("server: %s", m.Text)
	}
	return errors.Errorf("unexpected response from server: %s", m.Kind())
}
