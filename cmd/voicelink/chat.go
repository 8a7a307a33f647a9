package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/happypartner/voicelink/adapters/playback"
	"github.com/happypartner/voicelink/domain"
	"github.com/happypartner/voicelink/domain/repositories"
	"github.com/happypartner/voicelink/internal/safety"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	infoStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	warningStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))

	agentStyles = map[domain.AgentLabel]lipgloss.Style{
		domain.AgentEdu:     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		domain.AgentSafety:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		domain.AgentEmotion: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		domain.AgentMemory:  lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		domain.AgentMeta:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
)

// terminalNotifier renders pipeline notices as styled banner lines.
type terminalNotifier struct{}

var _ repositories.Notifier = terminalNotifier{}

func (terminalNotifier) Info(text string)    { fmt.Println(infoStyle.Render("· " + text)) }
func (terminalNotifier) Warning(text string) { fmt.Println(warningStyle.Render("! " + text)) }
func (terminalNotifier) Error(text string)   { fmt.Println(errorStyle.Render("✗ " + text)) }

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive voice and text conversation",
	Long: `Starts a terminal conversation with the assistant.

Type a message and press enter to send it. Commands:
  /record   start recording from the microphone
  /stop     stop recording and send the transcription
  /quit     exit`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx := cmd.Context()
	filter := safety.NewFilter(nil)
	player := playback.NewOtoPlayer(cfg.Synthesis.LoadTimeout, logger)
	pipeline, err := buildPipeline(ctx, cfg, terminalNotifier{}, filter, player, nil, logger)
	if err != nil {
		return err
	}

	conversation := pipeline.Conversation()
	messages, cancel := conversation.Watch(64)
	defer cancel()

	for _, msg := range conversation.Messages() {
		printMessage(msg)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range messages {
			if msg.Sender == domain.SenderUser {
				// User lines are already on screen from the prompt.
				continue
			}
			printMessage(msg)
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/record":
			pipeline.StartRecording(ctx)
			if pipeline.Recording() {
				fmt.Println(infoStyle.Render("· recording, /stop to finish"))
			}
		case line == "/stop":
			pipeline.StopRecording(ctx)
		case strings.HasPrefix(line, "/"):
			fmt.Println(warningStyle.Render("! unknown command " + line))
		default:
			pipeline.Send(ctx, line, false)
		}
	}
	return scanner.Err()
}

func printMessage(msg domain.ChatMessage) {
	if msg.Sender == domain.SenderUser {
		fmt.Println(userStyle.Render("you: ") + msg.Content)
		return
	}
	style, ok := agentStyles[msg.Agent]
	if !ok {
		style = assistantStyle
	}
	label := "partner"
	if msg.Agent != "" && msg.Agent != domain.AgentEdu {
		label = "partner/" + string(msg.Agent)
	}
	fmt.Println(style.Render(label+": ") + msg.Content)
}
