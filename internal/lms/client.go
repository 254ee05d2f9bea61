package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// Client pushes grades back to the learning management system. Both calls
// report success as a bare bool; transport details stay inside the client
// and failures are logged, never escalated.
type Client interface {
	SubmitCourseGrade(ctx context.Context, courseID, userID string, score float64) bool
	SubmitSetGrade(ctx context.Context, courseID, userID, setID string, score float64) bool
}

// HTTPClient is the outcome-service implementation of Client. Each push is
// a JSON POST authenticated with a short-lived HMAC-signed bearer token.
type HTTPClient struct {
	endpoint string
	clientID string
	secret   []byte
	hc       *http.Client
	log      zerolog.Logger
}

// NewHTTPClient creates an HTTPClient for the given outcome endpoint.
func NewHTTPClient(endpoint, clientID, secret string, log zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		clientID: clientID,
		secret:   []byte(secret),
		hc:       &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("component", "lms_client").Logger(),
	}
}

type gradePayload struct {
	CourseID string  `json:"course_id"`
	UserID   string  `json:"user_id"`
	SetID    string  `json:"set_id,omitempty"`
	Score    float64 `json:"score"`
	SentAt   string  `json:"sent_at"`
}

// SubmitCourseGrade pushes the user's overall course grade.
func (c *HTTPClient) SubmitCourseGrade(ctx context.Context, courseID, userID string, score float64) bool {
	return c.push(ctx, gradePayload{
		CourseID: courseID,
		UserID:   userID,
		Score:    score,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

// SubmitSetGrade pushes the user's grade for a single homework set.
func (c *HTTPClient) SubmitSetGrade(ctx context.Context, courseID, userID, setID string, score float64) bool {
	return c.push(ctx, gradePayload{
		CourseID: courseID,
		UserID:   userID,
		SetID:    setID,
		Score:    score,
		SentAt:   time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *HTTPClient) push(ctx context.Context, p gradePayload) bool {
	body, err := json.Marshal(p)
	if err != nil {
		c.log.Error().Err(err).Msg("Grade payload marshal failed")
		return false
	}

	token, err := c.bearerToken()
	if err != nil {
		c.log.Error().Err(err).Msg("Bearer token signing failed")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		c.log.Error().Err(err).Msg("Build grade push request failed")
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", p.UserID).Msg("Grade push failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Str("user_id", p.UserID).Msg("Grade push rejected")
		return false
	}

	c.log.Debug().Str("user_id", p.UserID).Float64("score", p.Score).Msg("Grade pushed")
	return true
}

func (c *HTTPClient) bearerToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}
