package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wxmp-assistant/relay/internal/dispatch"
	"github.com/wxmp-assistant/relay/internal/llm"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "wxmp-assistant",
		Short:        "Relay for the WeChat publishing console assistant",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCommand(), newSendCommand(), newProvidersCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
}

func newSendCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "send <type> [json]",
		Short: "Send one message envelope to a running relay and print the reply",
		Example: `  wxmp-assistant send GET_SETTINGS
  wxmp-assistant send AI_REQUEST '{"action":"polish","text":"今天天气很好"}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg := dispatch.Message{Type: dispatch.MessageType(strings.TrimSpace(args[0]))}
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("data is not valid JSON: %s", args[1])
				}
				msg.Data = json.RawMessage(args[1])
			}
			reply, err := sendMessage(http.DefaultClient, addr, msg)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), reply)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultRelayAddr(), "relay base URL")
	return cmd
}

func defaultRelayAddr() string {
	port := os.Getenv("RELAY_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

func sendMessage(client *http.Client, addr string, msg dispatch.Message) (json.RawMessage, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	resp, err := client.Post(strings.TrimRight(addr, "/")+"/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

func writeIndented(w io.Writer, raw json.RawMessage) error {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := w.Write(out.Bytes())
	return err
}

func newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the built-in AI providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tBASE URL\tDEFAULT MODEL")
			for _, p := range llm.Providers() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, dash(p.BaseURL), dash(p.DefaultModel))
			}
			return tw.Flush()
		},
	}
}

func dash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
