// Command barre is a terminal client for the Barre realtime channel. It logs
// in, opens the Socket.IO connection and prints room broadcasts; terminal
// input counts as user activity for the sliding session.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/barre-app/barre/internal/client"
	"github.com/barre-app/barre/internal/client/api"
	"github.com/barre-app/barre/internal/client/session"
	"github.com/barre-app/barre/internal/client/websocket"
	"github.com/barre-app/barre/internal/logger"
	"github.com/barre-app/barre/internal/wire"
)

func main() {
	serverURL := flag.String("server", "http://localhost:3005", "server URL")
	email := flag.String("email", "", "login email")
	password := flag.String("password", "", "login password")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logger.SetLevel(logger.LevelDebug)
	}

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: barre -email <email> -password <password> [-server url]")
		os.Exit(2)
	}

	apiClient := api.NewClient(*serverURL)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	loginResp, err := apiClient.Login(ctx, *email, *password)
	cancel()
	if err != nil {
		logger.Errorf("Login failed: %v", err)
		os.Exit(1)
	}

	sess := session.New()
	sess.Apply(loginResp)
	logger.Infof("Logged in as %s (%s)", sess.User().Name, sess.User().Role)

	wsClient := websocket.NewClient(*serverURL, sess.AccessToken(), *debug)

	done := make(chan struct{})
	var shutdown sync.Once
	finish := func() { shutdown.Do(func() { close(done) }) }

	coordinator := client.NewCoordinator(
		sess,
		session.NewRefreshGate(),
		apiClient.Refresh,
		wsClient,
		func(reason string) {
			fmt.Printf("Session ended: %s\n", reason)
			finish()
		},
	)
	wsClient.OnAuthError(coordinator.HandleAuthError)
	wsClient.OnConnectFailure(coordinator.HandleConnectFailure)
	wsClient.OnConnectionConfirmed(func(p wire.ConnectionConfirmedPayload) {
		logger.Infof("Connection confirmed (user %d, role %s): %s", p.UserID, p.Role, p.Message)
	})

	wsClient.On("announcement", func(data map[string]interface{}) {
		fmt.Printf("[announcement] %v: %v\n", data["title"], data["content"])
	})
	wsClient.On("class_message", func(data map[string]interface{}) {
		fmt.Printf("[class %v] %v: %v\n", data["classId"], data["senderId"], data["content"])
	})

	if err := wsClient.Connect(); err != nil {
		logger.Errorf("WebSocket connection failed: %v", err)
		os.Exit(1)
	}
	defer wsClient.Close()

	if !wsClient.WaitForConnect(5 * time.Second) {
		logger.Warnf("WebSocket connection timeout")
	}

	watcher := client.NewActivityWatcher(coordinator.RefreshNow, func() {
		fmt.Println("Session ended: logged out after prolonged inactivity")
		finish()
	})
	watcher.Start()
	defer watcher.Stop()
	defer coordinator.Close()

	go readInput(wsClient, watcher, finish)

	<-done
}

func readInput(wsClient *websocket.Client, watcher *client.ActivityWatcher, finish func()) {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Commands: msg <classId> <text> | ping | quit")

	for scanner.Scan() {
		watcher.Touch()

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "quit":
			finish()
			return
		case line == "ping":
			if err := wsClient.SendPresencePing(); err != nil {
				logger.Warnf("Ping failed: %v", err)
			}
		case strings.HasPrefix(line, "msg "):
			parts := strings.SplitN(line, " ", 3)
			if len(parts) != 3 {
				fmt.Println("usage: msg <classId> <text>")
				continue
			}
			classID, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				fmt.Println("invalid class id")
				continue
			}
			if err := wsClient.SendClassMessage(classID, parts[2]); err != nil {
				logger.Warnf("Send failed: %v", err)
			}
		default:
			fmt.Println("unknown command")
		}
	}
}
