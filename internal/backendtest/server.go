// Package backendtest provides an in-process fake of the secrets backend's
// GraphQL API for tests.
//
// The fake keeps plaintext secrets in memory and speaks the wire formats the
// real backend does: inbound values are AES ciphertext under the session key,
// outbound envelopes are unwrapped with the backend private key and the
// application key.
package backendtest

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PolarWolf314/secretsync/internal/secrets"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultDeviceToken is the user token the fake accepts unless changed.
const DefaultDeviceToken = "user-device-token-0123456789abcdefghijklmnopqrstuvwxyz"

var operations = []string{
	"authenticateToken",
	"generalProjects",
	"generalSecrets",
	"addMergeRequest",
	"addSecrets",
	"addAuthCode",
	"verifyAuthCode",
	"revokeAuthToken",
}

var operationPatterns = func() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(operations))
	for _, op := range operations {
		patterns[op] = regexp.MustCompile(`\b` + op + `\s*[({]`)
	}
	return patterns
}()

// Environment is one environment of a Project.
type Environment struct {
	ID    string
	Title string
}

// Project is a catalog entry.
type Project struct {
	ID           string
	Title        string
	Member       bool
	Environments []Environment
}

// Secret is a stored secret in plaintext.
type Secret struct {
	ID      string
	Key     string
	Value   string
	Comment string

	// RawValue, when set, is returned on the wire instead of the encrypted Value.
	RawValue string
}

// Upload is one decoded record of an addSecrets or addMergeRequest call.
type Upload struct {
	ID            string
	Key           string
	Value         string
	Comment       string
	EnvironmentID string
	Action        string
}

// MergeRequest is one decoded addMergeRequest call.
type MergeRequest struct {
	EnvironmentID string
	Comment       string
	Secrets       []Upload
}

// Server is a fake GraphQL backend.
type Server struct {
	*httptest.Server

	Backend     *secrets.KeyPair
	SessionKey  string
	DeviceToken string

	mu            sync.Mutex
	accessToken   string
	projects      []Project
	stored        map[string][]Secret
	forbidden     map[string]bool
	failUploads   bool
	pendingPolls  int
	issuedToken   string
	calls         []string
	uploads       [][]Upload
	mergeRequests []MergeRequest
	revoked       []string
	requestIDs    []string
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	backend, err := secrets.GenerateKeyPair(secrets.MinRSABits)
	if err != nil {
		t.Fatalf("Failed to generate backend key pair: %v", err)
	}

	s := &Server{
		Backend:     backend,
		SessionKey:  "session-" + uuid.NewString(),
		DeviceToken: DefaultDeviceToken,
		stored:      make(map[string][]Secret),
		forbidden:   make(map[string]bool),
		issuedToken: DefaultDeviceToken,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// AddProject appends a project to the catalog.
func (s *Server) AddProject(p Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = append(s.projects, p)
}

// SetSecrets replaces the stored secrets of an environment.
func (s *Server) SetSecrets(environmentID string, stored ...Secret) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[environmentID] = append([]Secret(nil), stored...)
}

// Secrets returns the stored secrets of an environment.
func (s *Server) Secrets(environmentID string) []Secret {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Secret(nil), s.stored[environmentID]...)
}

// Forbid makes every secret query for the environment fail as Unauthorized.
func (s *Server) Forbid(environmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forbidden[environmentID] = true
}

// FailUploads makes addSecrets reject every batch.
func (s *Server) FailUploads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failUploads = fail
}

// SetPendingPolls sets how many verifyAuthCode calls fail before the code is confirmed.
func (s *Server) SetPendingPolls(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPolls = n
}

// SetIssuedToken sets the device token returned by verifyAuthCode.
func (s *Server) SetIssuedToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issuedToken = token
}

// Calls returns the operation names received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Uploads returns the decoded addSecrets batches.
func (s *Server) Uploads() [][]Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Upload(nil), s.uploads...)
}

// MergeRequests returns the decoded addMergeRequest calls.
func (s *Server) MergeRequests() []MergeRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MergeRequest(nil), s.mergeRequests...)
}

// Revoked returns the tokens passed to revokeAuthToken.
func (s *Server) Revoked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.revoked...)
}

// RequestIDs returns the X-Request-Id header of every request.
func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

type gqlRequest struct {
	Query     string                     `json:"query"`
	Variables map[string]json.RawMessage `json:"variables"`
}

type gqlError struct {
	Message string `json:"message"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req gqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	op := ""
	for _, name := range operations {
		if operationPatterns[name].MatchString(req.Query) {
			op = name
			break
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-Id"))

	var data any
	var err error
	switch op {
	case "authenticateToken":
		data, err = s.authenticateToken(req)
	case "addAuthCode":
		data, err = s.addAuthCode()
	case "verifyAuthCode":
		data, err = s.verifyAuthCode()
	case "revokeAuthToken":
		data, err = s.revokeAuthToken(req)
	default:
		if s.accessToken == "" || r.Header.Get("Authorization") != "Bearer "+s.accessToken {
			err = errors.New("Unauthorized")
			break
		}
		switch op {
		case "generalProjects":
			data = s.generalProjects()
		case "generalSecrets":
			data, err = s.generalSecrets(req)
		case "addSecrets":
			data, err = s.addSecrets(req)
		case "addMergeRequest":
			data, err = s.addMergeRequest(req)
		default:
			err = errors.New("unknown operation")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": nil, "errors": []gqlError{{Message: err.Error()}}})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func variable(req gqlRequest, name string, dst any) error {
	raw, ok := req.Variables[name]
	if !ok {
		return fmt.Errorf("missing variable $%s", name)
	}
	return json.Unmarshal(raw, dst)
}

func (s *Server) authenticateToken(req gqlRequest) (any, error) {
	var token, frontendPublicKey string
	if err := variable(req, "token", &token); err != nil {
		return nil, err
	}
	if err := variable(req, "frontendPublicKey", &frontendPublicKey); err != nil {
		return nil, err
	}
	if token != s.DeviceToken {
		return nil, errors.New("Invalid authentication token")
	}

	frontendKey, err := secrets.ParsePublicKeyPEM([]byte(frontendPublicKey))
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{
		"secretKey": secrets.EncryptStringWithPublicKey(s.SessionKey, frontendKey),
		"team":      map[string]any{"id": "team-1", "name": "Acme"},
		"teamRole":  map[string]any{"id": "role-1", "name": "Owner"},
		"sub":       "user-1",
		"exp":       time.Now().Add(15 * time.Minute).Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backendtest"))
	if err != nil {
		return nil, err
	}
	s.accessToken = accessToken

	backendPEM, err := s.Backend.PublicKeyPEM()
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"authenticateToken": map[string]any{
			"accessToken":      accessToken,
			"backendPublicKey": backendPEM,
			"user":             map[string]any{"id": "user-1", "email": "dev@example.com", "name": "Dev"},
			"authToken":        map[string]any{"id": "token-1", "name": "laptop"},
		},
	}, nil
}

func (s *Server) generalProjects() any {
	list := make([]map[string]any, 0, len(s.projects))
	for _, p := range s.projects {
		envs := make([]map[string]any, 0, len(p.Environments))
		for _, e := range p.Environments {
			envs = append(envs, map[string]any{"id": e.ID, "title": e.Title})
		}
		list = append(list, map[string]any{
			"id":           p.ID,
			"title":        p.Title,
			"member":       p.Member,
			"environments": map[string]any{"list": envs},
		})
	}
	return map[string]any{"generalProjects": map[string]any{"list": list}}
}

func (s *Server) projectFor(environmentID string) *Project {
	for i := range s.projects {
		for _, e := range s.projects[i].Environments {
			if e.ID == environmentID {
				return &s.projects[i]
			}
		}
	}
	return nil
}

func (s *Server) generalSecrets(req gqlRequest) (any, error) {
	var environmentID string
	if err := variable(req, "environmentId", &environmentID); err != nil {
		return nil, err
	}
	if s.forbidden[environmentID] {
		return nil, errors.New("Unauthorized")
	}

	project := s.projectFor(environmentID)
	projectRef := map[string]any{"id": "", "title": "", "member": false}
	if project != nil {
		projectRef = map[string]any{"id": project.ID, "title": project.Title, "member": project.Member}
	}

	list := make([]map[string]any, 0)
	for _, stored := range s.stored[environmentID] {
		value := stored.RawValue
		if value == "" {
			value = s.encrypt(stored.Value)
		}
		list = append(list, map[string]any{
			"id":      stored.ID,
			"key":     s.encrypt(stored.Key),
			"value":   value,
			"comment": s.encrypt(stored.Comment),
			"project": projectRef,
		})
	}

	return map[string]any{
		"generalSecrets": map[string]any{"totalCount": len(list), "list": list},
	}, nil
}

func (s *Server) encrypt(plaintext string) string {
	ciphertext, err := secrets.EncryptWithPassphrase(plaintext, s.SessionKey)
	if err != nil {
		return ""
	}
	return ciphertext
}

type wireSecret struct {
	ID            string `json:"id"`
	Key           string `json:"key"`
	Value         string `json:"value"`
	Comment       string `json:"comment"`
	EnvironmentID string `json:"environmentId"`
	Action        string `json:"action"`
}

func (s *Server) open(field string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(field)
	if err != nil {
		return "", errors.New("Invalid envelope")
	}
	inner, err := secrets.DecryptWithPrivateKey(raw, s.Backend.PrivateKey)
	if err != nil {
		return "", errors.New("Invalid envelope")
	}
	plaintext, ok := secrets.DecryptWithPassphrase(string(inner), secrets.AppKey)
	if !ok {
		return "", errors.New("Invalid envelope")
	}
	return plaintext, nil
}

func (s *Server) decodeUploads(wire []wireSecret) ([]Upload, error) {
	uploads := make([]Upload, 0, len(wire))
	for _, w := range wire {
		key, err := s.open(w.Key)
		if err != nil {
			return nil, err
		}
		value, err := s.open(w.Value)
		if err != nil {
			return nil, err
		}
		comment := ""
		if w.Comment != "" {
			if comment, err = s.open(w.Comment); err != nil {
				return nil, err
			}
		}
		uploads = append(uploads, Upload{
			ID:            w.ID,
			Key:           key,
			Value:         value,
			Comment:       comment,
			EnvironmentID: w.EnvironmentID,
			Action:        w.Action,
		})
	}
	return uploads, nil
}

func (s *Server) addSecrets(req gqlRequest) (any, error) {
	var wire []wireSecret
	if err := variable(req, "addSecretsInput", &wire); err != nil {
		return nil, err
	}
	if s.failUploads {
		return nil, errors.New("Internal server error")
	}

	uploads, err := s.decodeUploads(wire)
	if err != nil {
		return nil, err
	}
	s.uploads = append(s.uploads, uploads)

	results := make([]map[string]any, 0, len(uploads))
	for _, u := range uploads {
		stored := s.stored[u.EnvironmentID]
		index := -1
		for i, existing := range stored {
			if existing.Key == u.Key {
				index = i
				break
			}
		}

		switch strings.ToUpper(u.Action) {
		case "DELETE":
			if index >= 0 {
				stored = append(stored[:index], stored[index+1:]...)
			}
		default:
			if index >= 0 {
				stored[index].Value = u.Value
				stored[index].Comment = u.Comment
				stored[index].RawValue = ""
			} else {
				stored = append(stored, Secret{ID: uuid.NewString(), Key: u.Key, Value: u.Value, Comment: u.Comment})
			}
		}
		s.stored[u.EnvironmentID] = stored
		results = append(results, map[string]any{"id": u.ID, "key": u.Key})
	}

	return map[string]any{"addSecrets": results}, nil
}

func (s *Server) addMergeRequest(req gqlRequest) (any, error) {
	var environmentID, comment string
	var wire []wireSecret
	if err := variable(req, "environmentId", &environmentID); err != nil {
		return nil, err
	}
	if err := variable(req, "comment", &comment); err != nil {
		return nil, err
	}
	if err := variable(req, "addSecretsInput", &wire); err != nil {
		return nil, err
	}
	if s.forbidden[environmentID] {
		return nil, errors.New("Unauthorized")
	}

	uploads, err := s.decodeUploads(wire)
	if err != nil {
		return nil, err
	}
	s.mergeRequests = append(s.mergeRequests, MergeRequest{EnvironmentID: environmentID, Comment: comment, Secrets: uploads})

	return map[string]any{"addMergeRequest": map[string]any{"comment": comment}}, nil
}

func (s *Server) addAuthCode() (any, error) {
	return map[string]any{
		"addAuthCode": map[string]any{"authCode": "AUTH-1234", "pollingCode": "poll-5678"},
	}, nil
}

func (s *Server) verifyAuthCode() (any, error) {
	if s.pendingPolls > 0 {
		s.pendingPolls--
		return nil, errors.New("Auth code not verified yet")
	}
	return map[string]any{"verifyAuthCode": map[string]any{"token": s.issuedToken}}, nil
}

func (s *Server) revokeAuthToken(req gqlRequest) (any, error) {
	var token string
	if err := variable(req, "token", &token); err != nil {
		return nil, err
	}
	s.revoked = append(s.revoked, token)
	return map[string]any{
		"revokeAuthToken": map[string]any{"status": true, "message": "Token revoked"},
	}, nil
}
