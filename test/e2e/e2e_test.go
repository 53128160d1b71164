//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type cfg struct {
	APIBase       string // http://localhost:8080
	HealthURL     string // http://localhost:9100/readyz
	MailhogBase   string // http://localhost:8025
	AdminEmail    string
	AdminPassword string
	WaitEmail     time.Duration
}

func loadCfg() cfg {
	c := cfg{
		APIBase:       getenv("E2E_API_BASE", "http://localhost:8080"),
		HealthURL:     getenv("E2E_HEALTH_URL", "http://localhost:9100/readyz"),
		MailhogBase:   getenv("E2E_MAILHOG_BASE", "http://localhost:8025"),
		AdminEmail:    getenv("E2E_ADMIN_EMAIL", "admin@eduportal.dev"),
		AdminPassword: getenv("E2E_ADMIN_PASSWORD", "adminpass1"),
		WaitEmail:     mustParseDur(getenv("E2E_WAIT_EMAIL", "30s")),
	}
	return c
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustParseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

// --- API DTOs
type authResp struct {
	AccessToken string `json:"access_token"`
	Profile     struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	} `json:"profile"`
}

type profileResp struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type examReq struct {
	Title string `json:"title"`
	Exam  struct {
		StudentID int64   `json:"student_id"`
		Subject   string  `json:"subject"`
		Marks     float64 `json:"marks"`
		MaxMarks  float64 `json:"max_marks"`
	} `json:"exam"`
}

type itemResp struct {
	ID        int64 `json:"id"`
	Published bool  `json:"published"`
	Exam      struct {
		Grade  string `json:"grade"`
		Status string `json:"status"`
	} `json:"exam"`
}

type notificationsResp struct {
	Items []struct {
		Title   string `json:"title"`
		Channel string `json:"channel"`
		Status  string `json:"status"`
	} `json:"items"`
	Count int `json:"count"`
}

// --- Mailhog API v2 response (only the fields used here)
type mailhogMessages struct {
	Count    int          `json:"count"`
	Total    int          `json:"total"`
	Start    int          `json:"start"`
	Messages []mailhogMsg `json:"items"`
}
type mailhogMsg struct {
	To      []mailhogPerson `json:"To"`
	Content struct {
		Headers map[string][]string `json:"Headers"`
		Body    string              `json:"Body"`
	} `json:"Content"`
}
type mailhogPerson struct {
	Mailbox string `json:"Mailbox"`
	Domain  string `json:"Domain"`
}

func (p mailhogPerson) Email() string {
	if p.Domain == "" {
		return p.Mailbox
	}
	return p.Mailbox + "@" + p.Domain
}

// --- helpers

func postJSON(t *testing.T, url string, in any, out any, bearer string) {
	t.Helper()
	b, _ := json.Marshal(in)
	req, _ := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("POST %s => %d: %s", url, resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			t.Fatalf("unmarshal %s: %v; body=%s", url, err, string(body))
		}
	}
}

func getJSON(t *testing.T, url string, into any, bearer string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	all, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(all, into))
}

// --- the flow

func Test_PublishedExamResult_LeadsToEmail(t *testing.T) {
	c := loadCfg()

	for {
		t.Log("waiting for eduportal readiness")
		resp, err := http.Get(c.HealthURL)
		if err == nil {
			ok := resp.StatusCode == 200
			resp.Body.Close()
			if ok {
				break
			}
		}
		time.Sleep(1 * time.Second)
	}

	var admin authResp
	postJSON(t, c.APIBase+"/v1/auth/signin", map[string]string{
		"email":    c.AdminEmail,
		"password": c.AdminPassword,
	}, &admin, "")
	require.NotEmpty(t, admin.AccessToken)

	email := fmt.Sprintf("e2e_%d@eduportal.dev", time.Now().UnixNano())
	pass := "P@ssw0rd!"

	var student profileResp
	postJSON(t, c.APIBase+"/v1/profiles", map[string]string{
		"full_name": "E2E Student",
		"email":     email,
		"role":      "student",
		"password":  pass,
	}, &student, admin.AccessToken)
	require.NotZero(t, student.ID)
	t.Logf("student registered (id=%d)", student.ID)

	var req examReq
	req.Title = "E2E Midterm"
	req.Exam.StudentID = student.ID
	req.Exam.Subject = "Math"
	req.Exam.Marks = 72
	req.Exam.MaxMarks = 100

	var exam itemResp
	postJSON(t, c.APIBase+"/v1/content/exam_result", req, &exam, admin.AccessToken)
	require.NotZero(t, exam.ID)
	require.Equal(t, "B+", exam.Exam.Grade)
	require.Equal(t, "draft", exam.Exam.Status)

	var published itemResp
	postJSON(t, c.APIBase+"/v1/content/exam_result/"+strconv.FormatInt(exam.ID, 10)+"/publish", nil, &published, admin.AccessToken)
	require.Equal(t, "published", published.Exam.Status)

	deadline := time.Now().Add(c.WaitEmail)
	var lastErr error

	for time.Now().Before(deadline) {
		msgs := fetchMailhog(t, c, email)
		for _, m := range msgs {
			subj := headerFirst(m.Content.Headers, "Subject")
			if strings.Contains(subj, "Exam result: E2E Midterm") {
				t.Logf("got email: %q", subj)

				var stud authResp
				postJSON(t, c.APIBase+"/v1/auth/signin", map[string]string{"email": email, "password": pass}, &stud, "")
				var inbox notificationsResp
				getJSON(t, c.APIBase+"/v1/notifications", &inbox, stud.AccessToken)
				require.GreaterOrEqual(t, inbox.Count, 2, "welcome and exam result are both recorded")
				return
			}
		}
		lastErr = fmt.Errorf("no email yet")
		time.Sleep(1 * time.Second)
	}
	require.NoError(t, lastErr, "email didn't arrive in time")
}

func fetchMailhog(t *testing.T, c cfg, toEmail string) []mailhogMsg {
	t.Helper()
	var out mailhogMessages
	getJSON(t, c.MailhogBase+"/api/v2/messages", &out, "")
	var res []mailhogMsg
	for _, m := range out.Messages {
		for _, rcpt := range m.To {
			if strings.EqualFold(rcpt.Email(), toEmail) {
				res = append(res, m)
				break
			}
		}
	}
	return res
}

func headerFirst(h map[string][]string, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
