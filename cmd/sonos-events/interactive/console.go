// Package interactive provides the interactive command-line interface
// for sonos-events.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/faytom/node-sonos/pkg/events"
)

// commandTimeout bounds a single subscribe or unsubscribe request.
const commandTimeout = 15 * time.Second

// Session is the subscription surface the console drives.
// *events.Listener implements it.
type Session interface {
	ID() string
	CallbackURL() string
	Subscribe(ctx context.Context, endpoint string) (string, error)
	Unsubscribe(ctx context.Context, sid string) error
	Lookup(sid string) (events.SubscriptionInfo, bool)
	Subscriptions() []events.SubscriptionInfo
}

var _ Session = (*events.Listener)(nil)

// Console handles interactive mode for sonos-events.
type Console struct {
	session Session
	device  string
	rl      *readline.Instance
	out     io.Writer
	now     func() time.Time
}

// New creates a console for session. device names the player in status
// output.
func New(session Session, device string) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "sonos> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(session, device, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(session Session, device string, out io.Writer) *Console {
	return &Console{
		session: session,
		device:  device,
		out:     out,
		now:     time.Now,
	}
}

// Stdout returns a writer that coordinates with the readline prompt.
// Route log output through it.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop. cancel is called on quit or EOF.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Execute(ctx, line) {
			cancel()
			return
		}
	}
}

// Execute runs one command line. It returns false when the console should
// exit.
func (c *Console) Execute(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "list", "ls", "subs":
		c.cmdList()

	case "subscribe", "sub":
		c.cmdSubscribe(ctx, args)

	case "unsubscribe", "unsub":
		c.cmdUnsubscribe(ctx, args)

	case "state", "show":
		c.cmdState(args)

	case "status":
		c.cmdStatus()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
sonos-events Commands:
  list                   - List active subscriptions
  subscribe <endpoint>   - Subscribe to an event endpoint
  unsubscribe <sid>      - Cancel a subscription (prefix accepted)
  state <sid>            - Show accumulated state of a subscription
  status                 - Show listener status
  help                   - Show this help
  quit                   - Exit`)
}

func (c *Console) cmdList() {
	subs := c.session.Subscriptions()
	if len(subs) == 0 {
		fmt.Fprintln(c.out, "No active subscriptions")
		return
	}

	fmt.Fprintf(c.out, "%-48s %-36s %s\n", "SID", "ENDPOINT", "RENEWS IN")
	for _, s := range subs {
		fmt.Fprintf(c.out, "%-48s %-36s %s\n", s.SID, s.Endpoint, c.until(s.ExpiresAt))
	}
}

func (c *Console) cmdSubscribe(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: subscribe <endpoint>")
		return
	}
	endpoint := args[0]
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	sid, err := c.session.Subscribe(ctx, endpoint)
	if err != nil {
		fmt.Fprintf(c.out, "Subscribe failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Subscribed to %s (sid %s)\n", endpoint, sid)
}

func (c *Console) cmdUnsubscribe(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: unsubscribe <sid>")
		return
	}
	sid, ok := c.resolveSID(args[0])
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	if err := c.session.Unsubscribe(ctx, sid); err != nil {
		fmt.Fprintf(c.out, "Unsubscribe %s: %v\n", sid, err)
		return
	}
	fmt.Fprintf(c.out, "Unsubscribed %s\n", sid)
}

func (c *Console) cmdState(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: state <sid>")
		return
	}
	sid, ok := c.resolveSID(args[0])
	if !ok {
		return
	}
	info, ok := c.session.Lookup(sid)
	if !ok {
		fmt.Fprintf(c.out, "Subscription not found: %s\n", sid)
		return
	}

	fmt.Fprintf(c.out, "%s %s\n", info.SID, info.Endpoint)
	if len(info.State) == 0 {
		fmt.Fprintln(c.out, "  (no notifications yet)")
		return
	}
	names := make([]string, 0, len(info.State))
	for name := range info.State {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(c.out, "  %s = %s\n", name, info.State[name])
	}
}

func (c *Console) cmdStatus() {
	fmt.Fprintf(c.out, "Device:        %s\n", c.device)
	fmt.Fprintf(c.out, "Listener:      %s\n", c.session.ID())
	fmt.Fprintf(c.out, "Callback URL:  %s\n", c.session.CallbackURL())
	fmt.Fprintf(c.out, "Subscriptions: %d\n", len(c.session.Subscriptions()))
}

// resolveSID expands a unique SID prefix. It prints the problem and returns
// false when the prefix matches nothing or more than one subscription.
func (c *Console) resolveSID(prefix string) (string, bool) {
	var matches []string
	for _, s := range c.session.Subscriptions() {
		if s.SID == prefix {
			return s.SID, true
		}
		if strings.HasPrefix(s.SID, prefix) {
			matches = append(matches, s.SID)
		}
	}
	switch len(matches) {
	case 0:
		fmt.Fprintf(c.out, "Subscription not found: %s\n", prefix)
		return "", false
	case 1:
		return matches[0], true
	default:
		fmt.Fprintf(c.out, "Ambiguous SID %s matches %d subscriptions\n", prefix, len(matches))
		return "", false
	}
}

func (c *Console) until(t time.Time) string {
	d := t.Sub(c.now())
	if d < 0 {
		return "due"
	}
	return d.Round(time.Second).String()
}
