// Command fastn-chat is an interactive chat session backed by an LLM and the
// tools of a remote MCP server.
//
// Usage:
//
//	fastn-chat -url https://mcp.example.com/mcp [-model gpt-4o] [-session work]
//
// Configuration can also come from a .env file or the environment. Type
// "exit" to quit and "reset" to clear the conversation.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	agent "github.com/fastnlabs/fastn-agent"
	"github.com/fastnlabs/fastn-agent/chat"
	"github.com/fastnlabs/fastn-agent/internal/logging"
	"github.com/fastnlabs/fastn-agent/llm"
	"github.com/fastnlabs/fastn-agent/mcptools"
	"github.com/fastnlabs/fastn-agent/persistence"
	"github.com/fastnlabs/fastn-agent/persistence/filestore"
)

const (
	defaultModel      = "gpt-4o"
	defaultHistoryDir = "chat_history"

	// Tool outputs longer than this are truncated in the console.
	maxToolOutputDisplay = 50
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("fastn-chat", flag.ExitOnError)
	apiKey := fs.String("api-key", "", "LLM API key (falls back to the provider's environment variable)")
	model := fs.String("model", defaultModel, "model name, provider is inferred from it")
	serverName := fs.String("server-name", "fastn", "MCP server name")
	transport := fs.String("transport", string(mcptools.TransportStreamableHTTP), "MCP transport: streamable_http, sse, or stdio")
	url := fs.String("url", "", "MCP server URL")
	session := fs.String("session", "default", "session ID for chat history")
	historyDir := fs.String("history-dir", defaultHistoryDir, "directory for chat history files")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *debug {
		logging.SetLogLevel(slog.LevelDebug)
	}

	// A .env file is optional.
	_ = godotenv.Load()

	reader := bufio.NewReader(in)

	key := *apiKey
	if key == "" && os.Getenv(apiKeyEnvVar(*model)) == "" {
		key = promptLine(reader, out, "Enter your API key: ")
		if key == "" {
			return fmt.Errorf("no API key provided")
		}
	}

	serverURL := *url
	if serverURL == "" && mcptools.Transport(*transport) != mcptools.TransportStdio {
		fmt.Fprintln(out, "\nPlease provide MCP server details:")
		serverURL = promptLine(reader, out, fmt.Sprintf("Server URL for %s (%s): ", *serverName, *transport))
		if serverURL == "" {
			return fmt.Errorf("no server URL provided")
		}
	}

	client, err := llm.NewClient(&llm.Config{Model: *model, APIKey: key})
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	ctx := context.Background()

	fmt.Fprintf(out, "\nInitializing agent with %s server...\n", *serverName)
	toolset, err := mcptools.Load(ctx, []mcptools.ServerConfig{{
		Name:      *serverName,
		Transport: mcptools.Transport(*transport),
		URL:       serverURL,
	}})
	if err != nil {
		return fmt.Errorf("load MCP tools: %w", err)
	}
	defer toolset.Close()

	store, err := filestore.New(*historyDir)
	if err != nil {
		return fmt.Errorf("open history directory: %w", err)
	}
	defer store.Close()

	transcript, err := store.Load(*session)
	if err != nil {
		return fmt.Errorf("load chat history: %w", err)
	}

	a := agent.New(client, toolset.Tools(), agent.WithTranscript(transcript))

	fmt.Fprintf(out, "\nWelcome to the fastn-agent chat!\n")
	fmt.Fprintf(out, "Session: %s\n", *session)
	fmt.Fprintf(out, "Loaded %d previous messages\n", len(transcript))
	fmt.Fprintln(out, "Type 'exit' to quit, 'reset' to clear history")

	return chatLoop(ctx, reader, out, a, store, *session)
}

// chatLoop reads user lines and runs agent turns until exit or EOF. History
// is saved after every turn so an interrupted session loses nothing.
func chatLoop(ctx context.Context, in *bufio.Reader, out io.Writer, a *agent.Agent, store persistence.Store, sessionID string) error {
	for {
		fmt.Fprint(out, "\n> ")
		line, err := in.ReadString('\n')
		input := strings.TrimSpace(line)
		if err == io.EOF && input == "" {
			return saveHistory(store, sessionID, a.Transcript())
		}
		if err != nil && err != io.EOF {
			return fmt.Errorf("read input: %w", err)
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case "exit":
			fmt.Fprintln(out, "Saving chat history and exiting...")
			return saveHistory(store, sessionID, a.Transcript())
		case "reset":
			fmt.Fprintln(out, "Resetting conversation history...")
			a.Reset()
			if err := saveHistory(store, sessionID, a.Transcript()); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintln(out, "Processing your message...")
		resp := a.ProcessMessage(ctx, input)

		if err := saveHistory(store, sessionID, resp.Transcript); err != nil {
			return err
		}

		if resp.Status != agent.StatusSuccess {
			fmt.Fprintf(out, "\nError: %v\n", resp.Err)
			continue
		}

		fmt.Fprintf(out, "\nAgent: %s\n", resp.AssistantMessage)
		printToolResults(out, resp.ToolResults)
	}
}

func saveHistory(store persistence.Store, sessionID string, transcript chat.Transcript) error {
	if err := store.Save(sessionID, transcript); err != nil {
		return fmt.Errorf("save chat history: %w", err)
	}
	return nil
}

func printToolResults(out io.Writer, results map[string]agent.ToolResultRecord) {
	if len(results) == 0 {
		return
	}
	fmt.Fprintln(out, "\nTool Results:")
	for id, record := range results {
		fmt.Fprintf(out, "  %s: %s - %s\n", id, record.Tool, truncate(record.Output, maxToolOutputDisplay))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func promptLine(in *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// apiKeyEnvVar names the environment variable the provider inferred from the
// model would read its key from.
func apiKeyEnvVar(model string) string {
	modelLower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(modelLower, "claude-"):
		return "ANTHROPIC_API_KEY"
	case strings.HasPrefix(modelLower, "gemini-"):
		return "GEMINI_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}
