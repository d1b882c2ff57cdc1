package cli

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/pagesmith/internal/domain"
)

func newWatchCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Stream console output and navigation from a session's preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			addr, err := socketURL(cfg.ServerURL, args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
			if err != nil {
				return fmt.Errorf("dial: %w", err)
			}
			defer conn.Close()
			done := make(chan struct{})
			defer close(done)
			go func() {
				select {
				case <-ctx.Done():
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
					_ = conn.Close()
				case <-done:
				}
			}()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching session %s. Ctrl+C to stop.\n", args[0])
			for {
				_, data, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						return nil
					}
					return fmt.Errorf("read: %w", err)
				}
				if asJSON {
					fmt.Fprintln(out, string(data))
					continue
				}
				var event domain.BridgeEvent
				if err := json.Unmarshal(data, &event); err != nil {
					fmt.Fprintf(out, "unreadable event: %s\n", data)
					continue
				}
				fmt.Fprintln(out, formatEvent(event))
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw events")
	return cmd
}

// socketURL derives the bridge websocket address from the service URL.
func socketURL(serverURL, sessionID string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = "/api/bridge/ws"
	u.RawQuery = url.Values{"session_id": {sessionID}}.Encode()
	return u.String(), nil
}

func formatEvent(e domain.BridgeEvent) string {
	ts := time.UnixMilli(e.Ts).Format("15:04:05.000")
	if e.Type == domain.BridgeEventConsole {
		return fmt.Sprintf("%s [%s] %s", ts, e.Level, e.Content)
	}
	return fmt.Sprintf("%s (%s) %s", ts, e.Type, e.Content)
}
