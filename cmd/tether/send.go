package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"tether/internal/config"
	"tether/internal/connection"
	"tether/pkg/protocol"
)

var (
	sendURL     string
	sendToken   string
	sendTimeout time.Duration
)

var newCorrelationID = uuid.NewString

var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send one prompt and print the reply",
	Long: `Connect, send a single prompt and print the assistant's reply, then
disconnect. Pass "-" to read the prompt from stdin. The connection is not
redialed if it drops.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSendCmd,
}

func init() {
	sendCmd.Flags().StringVar(&sendURL, "url", "", "gateway WebSocket URL (saved to config)")
	sendCmd.Flags().StringVar(&sendToken, "token", "", "gateway token (overrides keyring and config)")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 2*time.Minute, "give up after this long")
}

func runSendCmd(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt: %w", err)
		}
		text = string(data)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("prompt is empty")
	}

	cfg, err := config.LoadOrCreate(cfgFile, config.Overrides{
		URL:       sendURL,
		Reconnect: reconnectOverride(true),
	})
	if err != nil {
		return err
	}
	logger, closeLog, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	reportPlaceholders(cfg, logger)
	applyToken(cfg, sendToken, logger)

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	client := newClient(cfg, logger, nil)
	_, err = runSend(ctx, client, text, &ptermOutput{})
	return err
}

// sendClient is the part of connection.Client a one-shot send needs.
type sendClient interface {
	URL() string
	Connect()
	Disconnect()
	Send(msg protocol.Message) error
	SetHandlers(h connection.Handlers)
}

// sendOutput renders the progress of a one-shot send.
type sendOutput interface {
	// Waiting shows a transient status while nothing else is printed.
	Waiting(text string)
	Notice(text string)
	// Stream prints a partial reply chunk.
	Stream(chunk string)
	// Finish prints the final reply. streamed reports whether chunks were
	// already printed.
	Finish(content string, streamed bool)
	Stop()
}

// runSend connects, sends text as a prompt and waits for the reply tagged
// with the prompt's correlation ID. Inbound frames without a correlation
// ID are treated as part of the reply.
func runSend(ctx context.Context, client sendClient, text string, out sendOutput) (string, error) {
	done := make(chan struct{})
	defer close(done)

	opened := make(chan struct{}, 1)
	closed := make(chan connection.CloseEvent, 1)
	inbound := make(chan protocol.Message, 64)

	client.SetHandlers(connection.Handlers{
		OnOpen: func() {
			select {
			case opened <- struct{}{}:
			default:
			}
		},
		OnClose: func(ev connection.CloseEvent) {
			select {
			case closed <- ev:
			default:
			}
		},
		OnMessage: func(m protocol.Message) {
			select {
			case inbound <- m:
			case <-done:
			}
		},
	})

	defer out.Stop()
	out.Waiting(fmt.Sprintf("Connecting to %s", client.URL()))
	client.Connect()
	defer client.Disconnect()

	select {
	case <-opened:
	case ev := <-closed:
		return "", fmt.Errorf("failed to connect to %s: %s", client.URL(), describeClose(ev))
	case <-ctx.Done():
		return "", fmt.Errorf("timed out connecting to %s: %w", client.URL(), ctx.Err())
	}

	id := newCorrelationID()
	if err := client.Send(protocol.WithCorrelation(protocol.PromptPayload{Text: text}, id)); err != nil {
		return "", fmt.Errorf("failed to send prompt: %w", err)
	}
	out.Waiting("Waiting for reply")

	streamed := false
	for {
		select {
		case m := <-inbound:
			if m.CorrelationID != "" && m.CorrelationID != id {
				continue
			}
			switch p := m.Payload.(type) {
			case protocol.ThinkingPayload:
				status := "Thinking"
				if p.Content != "" {
					status = p.Content
				}
				out.Waiting(status)
			case protocol.ToolCallStartPayload:
				out.Notice(fmt.Sprintf("tool %s started", p.Name))
			case protocol.ToolCallResultPayload:
				status := "done"
				if p.IsError {
					status = "failed"
				}
				name := p.Name
				if name == "" {
					name = p.ToolCallID
				}
				out.Notice(fmt.Sprintf("tool %s %s", name, status))
			case protocol.SystemPayload:
				out.Notice(p.Message)
			case protocol.AssistantResponsePayload:
				if !p.Done {
					out.Stream(p.Content)
					streamed = true
					continue
				}
				out.Finish(p.Content, streamed)
				return p.Content, nil
			case protocol.ResponsePayload:
				out.Finish(p.Content, streamed)
				return p.Content, nil
			case protocol.ErrorPayload:
				if p.Code != "" {
					return "", fmt.Errorf("gateway error [%s]: %s", p.Code, p.Message)
				}
				return "", fmt.Errorf("gateway error: %s", p.Message)
			}
		case ev := <-closed:
			return "", fmt.Errorf("connection closed before the reply arrived: %s", describeClose(ev))
		case <-ctx.Done():
			return "", fmt.Errorf("timed out waiting for a reply: %w", ctx.Err())
		}
	}
}

func describeClose(ev connection.CloseEvent) string {
	if ev.Reason != "" {
		return fmt.Sprintf("code %d, %s", ev.Code, ev.Reason)
	}
	return fmt.Sprintf("code %d", ev.Code)
}

// ptermOutput renders send progress on the terminal with pterm.
type ptermOutput struct {
	spinner *pterm.SpinnerPrinter
}

func (o *ptermOutput) Waiting(text string) {
	if o.spinner != nil {
		o.spinner.UpdateText(text)
		return
	}
	spinner, err := pterm.DefaultSpinner.WithWriter(os.Stderr).Start(text)
	if err == nil {
		o.spinner = spinner
	}
}

func (o *ptermOutput) Notice(text string) {
	o.Stop()
	pterm.Info.WithWriter(os.Stderr).Println(text)
}

func (o *ptermOutput) Stream(chunk string) {
	o.Stop()
	pterm.Print(chunk)
}

func (o *ptermOutput) Finish(content string, streamed bool) {
	o.Stop()
	if streamed {
		pterm.Println()
		return
	}
	pterm.Println(content)
}

func (o *ptermOutput) Stop() {
	if o.spinner != nil {
		_ = o.spinner.Stop()
		o.spinner = nil
	}
}
