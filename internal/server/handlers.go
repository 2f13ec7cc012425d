// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, room statistics, and the built-in test page.
package server

import (
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WebSocketHandler handles WebSocket upgrade requests and manages client connections.
// It validates that the request uses the GET method, upgrades the HTTP connection
// to WebSocket, creates a new Client with its own connection ID, and hands it to
// the hub which starts the client's read/write pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", zap.String("addr", r.RemoteAddr), zap.Error(err))
		return
	}

	client := NewClient(conn, s.hub, s.coordinator, r.RemoteAddr, s.cfg, s.log.Named("client"))
	if !s.hub.Register(client) {
		_ = conn.Close()
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
// It responds with a plain text message indicating the server is running.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "GoChat rooms server is running!")
}

type statsResponse struct {
	Sessions int `json:"sessions"`
	Rooms    int `json:"rooms"`
}

// StatsHandler reports how many sessions and rooms are active.
func (s *Server) StatsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.log, statsResponse{
		Sessions: s.registry.Len(),
		Rooms:    s.registry.Rooms(),
	})
}

type availabilityResponse struct {
	Room      string `json:"room"`
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// AvailabilityHandler tells a client whether a username is still free in a
// room before it tries to join.
func (s *Server) AvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	username := r.PathValue("username")
	writeJSON(w, s.log, availabilityResponse{
		Room:      room,
		Username:  username,
		Available: !s.registry.Exists(room, username),
	})
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("error writing JSON response", zap.Error(err))
	}
}

// TestPageHandler serves an HTML page for trying the room protocol by hand:
// join a room under a name, chat, watch the member list, and leave.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPageHTML)
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>GoChat Rooms</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #layout { display: flex; gap: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            width: 500px;
            padding: 10px;
            overflow-y: scroll;
            background-color: #f9f9f9;
        }
        #users { border: 1px solid #ccc; width: 180px; padding: 10px; }
        input[type="text"] { width: 160px; padding: 5px; margin-right: 6px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:disabled { background-color: #999; }
        .error { color: #721c24; }
        .admin { color: gray; font-style: italic; }
    </style>
</head>
<body>
    <h1>GoChat Rooms</h1>

    <div>
        <input type="text" id="username" placeholder="Name">
        <input type="text" id="room" placeholder="Room">
        <button id="joinButton" onclick="join()">Join</button>
        <button id="leaveButton" onclick="leave()" disabled>Leave</button>
    </div>
    <div id="error" class="error"></div>

    <div id="layout">
        <div>
            <div id="messages"></div>
            <input type="text" id="messageInput" placeholder="Type a message..." disabled>
            <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
        </div>
        <div id="users"><strong id="roomName">No room</strong><ul id="userList"></ul></div>
    </div>

    <script>
        const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
        let ws = null;
        let nextId = 1;
        const pending = {};

        function el(id) { return document.getElementById(id); }

        function setJoined(joined) {
            el('messageInput').disabled = !joined;
            el('sendButton').disabled = !joined;
            el('leaveButton').disabled = !joined;
            el('joinButton').disabled = joined;
        }

        function addMessage(user, text) {
            const line = document.createElement('div');
            if (user === 'admin') {
                line.className = 'admin';
                line.textContent = text;
            } else {
                const name = document.createElement('strong');
                name.textContent = user + ': ';
                line.appendChild(name);
                line.appendChild(document.createTextNode(text));
            }
            el('messages').appendChild(line);
            el('messages').scrollTop = el('messages').scrollHeight;
        }

        function showRoom(data) {
            el('roomName').textContent = data.room;
            const list = el('userList');
            list.innerHTML = '';
            data.users.forEach(function(u) {
                const item = document.createElement('li');
                item.textContent = u.username;
                list.appendChild(item);
            });
        }

        function request(event, data, onAck) {
            const id = nextId++;
            if (onAck) { pending[id] = onAck; }
            ws.send(JSON.stringify({ event: event, id: id, data: data }));
        }

        function handle(env) {
            if (env.event === 'serverMessage') {
                addMessage(env.data.user, env.data.message);
            } else if (env.event === 'roomData') {
                setJoined(true);
                showRoom(env.data);
            } else if (env.event === 'ack' && pending[env.id]) {
                pending[env.id](env.data || {});
                delete pending[env.id];
            }
        }

        function connect(onOpen) {
            ws = new WebSocket(scheme + location.host + '/ws');
            ws.onopen = onOpen;
            ws.onmessage = function(event) {
                event.data.split('\n').forEach(function(line) {
                    if (line) { handle(JSON.parse(line)); }
                });
            };
            ws.onclose = function() {
                setJoined(false);
                ws = null;
            };
        }

        function join() {
            el('error').textContent = '';
            const send = function() {
                request('join', { username: el('username').value, room: el('room').value }, function(res) {
                    if (res.error) { el('error').textContent = res.error; }
                });
            };
            if (ws && ws.readyState === WebSocket.OPEN) { send(); } else { connect(send); }
        }

        function leave() {
            if (!ws) { return; }
            ws.send(JSON.stringify({ event: 'leave' }));
            setJoined(false);
            el('roomName').textContent = 'No room';
            el('userList').innerHTML = '';
        }

        function sendMessage() {
            const text = el('messageInput').value;
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                request('message', { text: text }, function(res) {
                    if (res.error) { el('error').textContent = res.error; }
                });
                el('messageInput').value = '';
            }
        }

        el('messageInput').addEventListener('keypress', function(e) {
            if (e.key === 'Enter') { sendMessage(); }
        });
    </script>
</body>
</html>`
