package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/fatih/color"
)

// Simplified DTOs for the script
type createSessionResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type turnFrame struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

type agentEvent struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func main() {
	baseURL := flag.String("base", "http://localhost:3000", "server base URL")
	token := flag.String("token", os.Getenv("SIMULATE_TOKEN"), "bearer token (empty uses the dev identity fallback)")
	message := flag.String("message", "我想学习 Go 语言的并发编程", "turn message to send")
	sessionID := flag.String("session", "", "reuse an existing session instead of creating one")
	flag.Parse()

	color.Cyan("=== Agent Turn Simulation Client ===")

	sid := *sessionID
	if sid == "" {
		var err error
		sid, err = createSession(*baseURL, *token)
		if err != nil {
			log.Fatalf("Failed to create session: %v", err)
		}
		color.Green("Session Created: %s", sid)
	}

	wsURL, err := websocketURL(*baseURL, sid, *token)
	if err != nil {
		log.Fatalf("Invalid base URL: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("Failed to connect websocket: %v", err)
	}
	defer conn.Close()

	fmt.Printf("\nUSER: %s\n\n", *message)
	if err := conn.WriteJSON(turnFrame{Source: "chat", Message: *message}); err != nil {
		log.Fatalf("Failed to send turn: %v", err)
	}

	start := time.Now()
	streamEvents(conn)
	color.Cyan("\nTurn finished in %v", time.Since(start))
}

// streamEvents reads the event stream until the turn ends or the server
// closes the connection. Document tokens are printed inline so the
// streamed markdown reads like the client would render it.
func streamEvents(conn *websocket.Conn) {
	inDocument := false
	for {
		conn.SetReadDeadline(time.Now().Add(3 * time.Minute))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			color.Red("\nConnection closed: %v", err)
			return
		}

		var ev agentEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			color.Red("Unreadable event: %s", raw)
			continue
		}

		switch ev.Type {
		case "document_token":
			if token, ok := ev.Data["token"].(string); ok {
				fmt.Print(token)
				inDocument = true
			}
		case "document_start":
			color.Yellow("--- document stream ---")
		case "error":
			if inDocument {
				fmt.Println()
			}
			color.Red("ERROR: %v", ev.Data["message"])
			return
		case "done":
			if inDocument {
				fmt.Println()
			}
			color.Green("DONE")
			return
		default:
			if inDocument {
				fmt.Println()
				inDocument = false
			}
			detail, _ := json.Marshal(ev.Data)
			color.Yellow("[%s] %s", ev.Type, string(detail))
		}
	}
}

func createSession(baseURL, token string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"title":         "Simulation Session",
		"learning_goal": "",
	})

	req, _ := http.NewRequest("POST", baseURL+"/api/session/v1", bytes.NewBuffer(payload))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API Error %d: %s", resp.StatusCode, string(body))
	}

	var res createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	return res.Data.ID, nil
}

func websocketURL(baseURL, sessionID, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws/session/" + sessionID
	if token != "" {
		u.RawQuery = "token=" + url.QueryEscape(token)
	}
	return u.String(), nil
}
