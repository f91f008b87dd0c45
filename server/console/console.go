package console

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/orchardguard/tractor/server"
	"github.com/orchardguard/tractor/server/cmd"
	"github.com/orchardguard/tractor/server/world"
)

// Console reads command lines from an io.Reader (os.Stdin by default) and
// runs them as transactions on the world of a server. The console acts as a
// streaming agent of its own: boundary touches it reports carry its ID.
type Console struct {
	srv    *server.Server
	log    *slog.Logger
	reader io.Reader
	agent  uuid.UUID
}

// New returns a Console bound to the server passed. Command output is written
// to log. The agent ID of the console is derived from the host name, so that
// it stays the same across restarts on one machine.
func New(srv *server.Server, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	host, _ := os.Hostname()
	return &Console{
		srv:    srv,
		log:    log,
		reader: os.Stdin,
		agent:  uuid.NewSHA1(uuid.NameSpaceOID, []byte("tractor/console/"+host)),
	}
}

// WithReader sets the reader command lines are read from.
func (c *Console) WithReader(r io.Reader) *Console {
	if r != nil {
		c.reader = r
	}
	return c
}

// WithAgent sets the agent ID the console reports boundary touches with.
func (c *Console) WithAgent(id uuid.UUID) *Console {
	if id != uuid.Nil {
		c.agent = id
	}
	return c
}

// Agent returns the agent ID of the console.
func (c *Console) Agent() uuid.UUID {
	return c.agent
}

// Run executes command lines until ctx is cancelled, the server is closed or
// the reader reaches EOF. A leading slash is optional. Run returns the number
// of lines executed.
func (c *Console) Run(ctx context.Context) int {
	stop := make(chan struct{})
	defer close(stop)
	lines := c.readLines(stop)

	src := &consoleSource{log: c.log, agent: c.agent}
	executed := 0
	for {
		// Cancellation wins over lines that are already buffered.
		select {
		case <-ctx.Done():
			return executed
		case <-c.srv.Done():
			return executed
		default:
		}

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return executed
		case <-c.srv.Done():
			return executed
		case line, ok = <-lines:
			if !ok {
				return executed
			}
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			line = "/" + line
		}
		c.log.Debug("console command", "line", line, "agent", c.agent)
		<-c.srv.World().Exec(func(tx *world.Tx) {
			cmd.ExecuteLine(src, line, tx, nil)
		})
		executed++
	}
}

// readLines scans the reader on a separate goroutine so that Run can return
// while a read is blocked. The channel returned is closed at EOF.
func (c *Console) readLines(stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.reader)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			c.log.Error("console input error", "err", err)
		}
	}()
	return lines
}

type consoleSource struct {
	log   *slog.Logger
	agent uuid.UUID
}

func (c *consoleSource) Name() string { return "Console" }

func (c *consoleSource) Agent() uuid.UUID { return c.agent }

func (c *consoleSource) SendCommandOutput(o *cmd.Output) {
	for _, msg := range o.Messages() {
		c.log.Info(msg)
	}
	for _, err := range o.Errors() {
		c.log.Error(err.Error())
	}
}
