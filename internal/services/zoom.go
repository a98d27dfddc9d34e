package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"proacademics-service/internal/config"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

type MeetingRequest struct {
	Topic     string
	Agenda    string
	StartTime time.Time
	Duration  int
}

type Meeting struct {
	ID       string
	JoinURL  string
	StartURL string
}

// MeetingCreator schedules an online meeting for a lesson.
type MeetingCreator interface {
	CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error)
}

// ZoomClient talks to the Zoom REST API with a server-to-server OAuth app.
type ZoomClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewZoomClient returns nil when the Zoom credentials are not configured.
func NewZoomClient(cfg config.ZoomConfig) *ZoomClient {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.AccountID == "" {
		return nil
	}

	oauthCfg := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
		EndpointParams: url.Values{
			"grant_type": {"account_credentials"},
			"account_id": {cfg.AccountID},
		},
	}

	httpClient := oauthCfg.Client(context.Background())
	httpClient.Timeout = 15 * time.Second

	return &ZoomClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type zoomMeetingRequest struct {
	Topic     string              `json:"topic"`
	Type      int                 `json:"type"`
	StartTime string              `json:"start_time"`
	Duration  int                 `json:"duration"`
	Timezone  string              `json:"timezone"`
	Agenda    string              `json:"agenda,omitempty"`
	Settings  zoomMeetingSettings `json:"settings"`
}

type zoomMeetingSettings struct {
	JoinBeforeHost bool `json:"join_before_host"`
	WaitingRoom    bool `json:"waiting_room"`
	MuteUponEntry  bool `json:"mute_upon_entry"`
}

type zoomMeetingResponse struct {
	ID       int64  `json:"id"`
	JoinURL  string `json:"join_url"`
	StartURL string `json:"start_url"`
}

func (z *ZoomClient) CreateMeeting(ctx context.Context, req MeetingRequest) (*Meeting, error) {
	body, err := json.Marshal(zoomMeetingRequest{
		Topic:     req.Topic,
		Type:      2, // scheduled meeting
		StartTime: req.StartTime.UTC().Format("2006-01-02T15:04:05Z"),
		Duration:  req.Duration,
		Timezone:  "UTC",
		Agenda:    req.Agenda,
		Settings: zoomMeetingSettings{
			WaitingRoom:   true,
			MuteUponEntry: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode zoom meeting: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.baseURL+"/users/me/meetings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build zoom request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := z.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("zoom request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("zoom returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var meeting zoomMeetingResponse
	if err := json.Unmarshal(raw, &meeting); err != nil {
		return nil, fmt.Errorf("failed to decode zoom meeting: %w", err)
	}

	return &Meeting{
		ID:       strconv.FormatInt(meeting.ID, 10),
		JoinURL:  meeting.JoinURL,
		StartURL: meeting.StartURL,
	}, nil
}
