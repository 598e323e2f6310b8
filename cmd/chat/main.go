// Command chat is a terminal client for the chat backend. It keeps the
// conversation index in a local BoltDB file, mirroring what the web client
// stores in the browser.
package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gemini-chat-backend/internal/models"
	"gemini-chat-backend/internal/repository"
	"gemini-chat-backend/internal/session"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "chat backend base URL")
	model := flag.String("model", "", "model identifier override")
	storePath := flag.String("store", defaultStorePath(), "conversation index file")
	flag.Parse()

	repo, err := repository.NewConversationRepo(*storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	sess := session.NewChatSession(repo, session.NewAPIClient(*serverURL), terminalView{}, *model)

	fmt.Println("Connected to", *serverURL)
	fmt.Println("Commands: /new /list /search <q> /load <id> /retry /attach <path> /quit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if !runCommand(sess, line) {
				return
			}
			continue
		}

		if _, err := sess.Send(context.Background(), line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

// defaultStorePath honors STORE_PATH so the flag and the environment agree
// on where the conversation index lives.
func defaultStorePath() string {
	if path := os.Getenv("STORE_PATH"); path != "" {
		return path
	}
	return "./data/conversations.db"
}

// runCommand handles a slash command; returns false on /quit.
func runCommand(sess *session.ChatSession, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		sess.NewConversation()
		return false

	case "/new":
		sess.NewConversation()
		fmt.Println("Started a new conversation.")

	case "/list":
		printConversations(sess.Search(""))

	case "/search":
		printConversations(sess.Search(arg))

	case "/load":
		if err := sess.Load(arg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

	case "/retry":
		turn, ok := lastModelTurn(sess.Turns())
		if !ok {
			fmt.Println("Nothing to retry yet.")
			break
		}
		if _, err := sess.Retry(context.Background(), turn.ID); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

	case "/attach":
		att, err := readAttachment(arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			break
		}
		sess.AttachFile(att)
		fmt.Printf("Attached %s (%d bytes), will be sent with the next message.\n", att.Name, att.Size)

	default:
		fmt.Println("Unknown command:", cmd)
	}

	return true
}

// readAttachment encodes a local file as the data-URL attachment the backend
// expects.
func readAttachment(path string) (models.Attachment, error) {
	if path == "" {
		return models.Attachment{}, fmt.Errorf("usage: /attach <path>")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, err
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	// Drop parameters like "; charset=utf-8"; the data URL carries the bare type
	if bare, _, ok := strings.Cut(mimeType, ";"); ok {
		mimeType = strings.TrimSpace(bare)
	}

	return models.Attachment{
		Name: filepath.Base(path),
		Type: mimeType,
		Size: int64(len(data)),
		Data: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

func lastModelTurn(turns []models.Turn) (models.Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == models.RoleModel || turns[i].Role == models.RoleBot {
			return turns[i], true
		}
	}
	return models.Turn{}, false
}

func printConversations(convs []models.Conversation) {
	if len(convs) == 0 {
		fmt.Println("No conversations found.")
		return
	}
	for _, c := range convs {
		fmt.Printf("%-36s │ %s │ %s\n", c.ID, c.UpdatedAt.Format("01-02 15:04"), c.Title)
	}
}

// terminalView prints transcript changes as they happen.
type terminalView struct{}

func (terminalView) AppendTurn(t models.Turn) {
	label := "gemini"
	if t.Role == models.RoleUser {
		label = "you"
	}
	fmt.Printf("%s> %s\n", label, t.Text)
	for _, f := range t.Files {
		fmt.Printf("       [%s, %d bytes]\n", f.Name, f.Size)
	}
}

func (terminalView) RemoveTurnsFrom(string) {
	fmt.Println("(regenerating response...)")
}

func (terminalView) SetTurnText(_, text string) {
	fmt.Printf("(edited) %s\n", text)
}

func (terminalView) Reset() {
	fmt.Println("────────────────────────────────")
}
