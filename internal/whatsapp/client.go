package whatsapp

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"wablast-backend/internal/apperr"
	"wablast-backend/internal/config"
	"wablast-backend/internal/dashboard"
	"wablast-backend/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/binary/proto"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

const reconnectDelay = 5 * time.Second

// SessionManager owns the single connection to WhatsApp. State changes are
// published to the dashboard; an unexpected close schedules one reconnect
// attempt after a fixed delay, an explicit logout is terminal.
type SessionManager struct {
	Config    *config.Config
	State     *dashboard.State
	Container *sqlstore.Container

	mu               sync.Mutex
	client           *whatsmeow.Client
	loggedOut        bool
	reconnectPending bool
}

func NewSessionManager(cfg *config.Config, state *dashboard.State) (*SessionManager, error) {
	dbLog := waLog.Stdout("Database", "WARN", true)
	container, err := sqlstore.New(context.Background(), "postgres", cfg.DatabaseURL, dbLog)
	if err != nil {
		return nil, fmt.Errorf("whatsmeow store init: %w", err)
	}

	return &SessionManager{
		Config:    cfg,
		State:     state,
		Container: container,
	}, nil
}

// Connect (re)initializes the whatsmeow client and starts the connection.
// When no device is paired yet, the QR channel feeds pairing payloads to
// the dashboard until the operator scans one.
func (sm *SessionManager) Connect(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.client != nil && sm.client.IsConnected() {
		return nil
	}

	deviceStore, err := sm.Container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("device lookup: %w", err)
	}
	if deviceStore == nil {
		deviceStore = sm.Container.NewDevice()
	}

	clientLog := waLog.Stdout("Client", "WARN", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)
	// The reconnect policy lives here, not in the library.
	client.EnableAutoReconnect = false
	client.AddEventHandler(sm.handleEvent)
	sm.client = client
	sm.loggedOut = false

	if client.Store.ID == nil {
		// Not paired yet: surface QR codes until pairing succeeds.
		qrChan, _ := client.GetQRChannel(context.Background())
		if err := client.Connect(); err != nil {
			return err
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					sm.publishQR(evt.Code)
				}
			}
		}()
		return nil
	}

	return client.Connect()
}

func (sm *SessionManager) publishQR(code string) {
	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		log.Error().Err(err).Msg("failed to render pairing QR")
		return
	}
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	sm.State.SetStatus(model.SessionStatusPairing)
	sm.State.SetQR(&uri)
}

func (sm *SessionManager) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.PairSuccess:
		log.Info().Str("jid", v.ID.String()).Msg("device paired")

	case *events.Connected:
		log.Info().Msg("whatsapp connected")
		sm.State.SetQR(nil)
		sm.State.SetStatus(model.SessionStatusConnected)

	case *events.LoggedOut:
		// Explicit logout: terminal, no reconnect.
		log.Warn().Msg("whatsapp logged out")
		sm.mu.Lock()
		sm.loggedOut = true
		sm.mu.Unlock()
		sm.State.SetQR(nil)
		sm.State.SetStatus(model.SessionStatusDisconnected)

	case *events.Disconnected:
		log.Warn().Msg("whatsapp disconnected")
		sm.State.SetStatus(model.SessionStatusDisconnected)
		sm.scheduleReconnect()

	case *events.StreamReplaced:
		log.Warn().Msg("whatsapp stream replaced by another client")
		sm.State.SetStatus(model.SessionStatusDisconnected)
		sm.scheduleReconnect()
	}
}

func (sm *SessionManager) scheduleReconnect() {
	if !sm.armReconnect() {
		return
	}

	time.AfterFunc(reconnectDelay, func() {
		sm.mu.Lock()
		sm.reconnectPending = false
		sm.mu.Unlock()

		log.Info().Msg("attempting whatsapp reconnect")
		if err := sm.Connect(context.Background()); err != nil {
			log.Error().Err(err).Msg("reconnect failed")
		}
	})
}

// armReconnect reports whether a reconnect timer should be started: at
// most one is pending at a time, and none after an explicit logout. A
// burst of close events therefore arms a single timer.
func (sm *SessionManager) armReconnect() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.loggedOut || sm.reconnectPending {
		return false
	}
	sm.reconnectPending = true
	return true
}

func (sm *SessionManager) IsConnected() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.client != nil && sm.client.IsConnected()
}

// Send delivers one text message. It fails immediately when the session
// is not connected; no retry is attempted here.
func (sm *SessionManager) Send(ctx context.Context, phone, text string) error {
	sm.mu.Lock()
	client := sm.client
	sm.mu.Unlock()

	if client == nil || !client.IsConnected() {
		return apperr.ErrUnavailable
	}

	jid := types.NewJID(phone, types.DefaultUserServer)
	_, err := client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: proto.String(text),
	})
	return err
}

// Disconnect closes the connection without logging out. Used on shutdown.
func (sm *SessionManager) Disconnect() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.loggedOut = true // suppress the reconnect timer
	if sm.client != nil {
		sm.client.Disconnect()
	}
}
