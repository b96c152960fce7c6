package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic_advisor/internal/models"
)

const sampleDocument = `{
  "student_id": " 2012345 ",
  "program_code": "D520207",
  "observations": [
    {"course_code": "MT1003", "name": "Calculus 1", "credits": 4, "numeric_score": 3.5, "letter_grade": "F", "recorded_at": "2021-01-10"},
    {"course_code": "MT1003", "name": "Calculus 1", "credits": "4", "numeric_score": "5,0", "letter_grade": "D+", "recorded_at": "2022-01-10 08:00:00"},
    {"course_code": "MT1003", "credits": "abc", "numeric_score": "", "recorded_at": null},
    {"course_code": "PH1003", "credits": 3.5, "numeric_score": 7, "pass_flag": 1, "recorded_at": "2022-06-01T10:00:00+07:00"},
    {"course_code": "EE1001", "credits": "3.0", "numeric_score": "8.25", "component_scores": "8 8 9", "recorded_at": "yesterday"}
  ],
  "gpa_history": [
    {"term_credits": 18, "term_gpa": 2.1, "cumulative_gpa": 2.1, "earned_credits": 18},
    {"term_credits": "17", "term_gpa": "2,9", "cumulative_gpa": "2.5", "earned_credits": 35}
  ]
}`

func TestDecodeTolerantFields(t *testing.T) {
	doc, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "2012345", doc.StudentID)
	assert.Equal(t, "D520207", doc.ProgramCode)

	batch := doc.Batch()
	require.Len(t, batch, 5)

	assert.Equal(t, 4, batch[0].CreditsClaimed)
	assert.Equal(t, time.Date(2021, 1, 10, 0, 0, 0, 0, time.UTC), batch[0].RecordedAt)

	assert.Equal(t, 4, batch[1].CreditsClaimed)
	assert.Equal(t, 5.0, batch[1].NumericScore)
	assert.Equal(t, time.Date(2022, 1, 10, 8, 0, 0, 0, time.UTC), batch[1].RecordedAt)

	assert.Zero(t, batch[2].CreditsClaimed)
	assert.Zero(t, batch[2].NumericScore)
	assert.True(t, batch[2].RecordedAt.IsZero())

	assert.Zero(t, batch[3].CreditsClaimed, "fractional credits are garbled")
	assert.Equal(t, "1", batch[3].PassFlag)
	assert.Equal(t, time.Date(2022, 6, 1, 3, 0, 0, 0, time.UTC), batch[3].RecordedAt)

	assert.Equal(t, 3, batch[4].CreditsClaimed)
	assert.Equal(t, 8.25, batch[4].NumericScore)
	assert.Equal(t, "8 8 9", batch[4].ComponentScores)
	assert.True(t, batch[4].RecordedAt.IsZero())

	assert.Equal(t, models.Standing{CumulativeGPA: 2.5, EarnedCredits: 35}, doc.Standing())
	assert.InDelta(t, 2.9, doc.History()[1].TermGPA, 1e-9)
}

func TestDecodeEmptyHistory(t *testing.T) {
	doc, err := Decode(strings.NewReader(`{"student_id":"s1","observations":[]}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Batch())
	assert.Zero(t, doc.Standing())
}

func TestDecodeRejectsBrokenJSON(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"student_id":`))
	assert.Error(t, err)
}

func TestDecodeNormalizesText(t *testing.T) {
	// decomposed "a" + combining acute composes to a single rune
	doc, err := Decode(strings.NewReader(`{"observations":[{"course_code":" MT1003 ","name":"Gia\u0301o du\u0323c"}]}`))
	require.NoError(t, err)

	got := doc.Batch()[0]
	assert.Equal(t, "MT1003", got.CourseCode)
	assert.Equal(t, "Gi\u00e1o d\u1ee5c", got.Name)
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"7,5", 7.5},
		{"7.5", 7.5},
		{"", 0},
		{"  6 ", 6},
		{"n/a", 0},
		{"1e999", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseFloat(tt.in), tt.in)
	}
}

func TestDecodeCSV(t *testing.T) {
	input := "\ufeffCourse_Code,name,credits,numeric_score,letter_grade,recorded_at,extra\n" +
		"MT1003,Calculus 1,4,\"3,5\",F,2021-01-10,x\n" +
		"MT1003,Calculus 1,4,5.0,D+,2022-01-10,x\n" +
		"PH1003,Physics 1,four,7\n"

	batch, err := DecodeCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, batch, 3)

	assert.Equal(t, 3.5, batch[0].NumericScore)
	assert.Equal(t, "F", batch[0].LetterGrade)
	assert.Equal(t, time.Date(2022, 1, 10, 0, 0, 0, 0, time.UTC), batch[1].RecordedAt)
	assert.Zero(t, batch[2].CreditsClaimed)
	assert.Equal(t, 7.0, batch[2].NumericScore)
	assert.Empty(t, batch[2].LetterGrade)
}

func TestDecodeCSVHeaderErrors(t *testing.T) {
	_, err := DecodeCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = DecodeCSV(strings.NewReader("name,credits\nCalculus,4\n"))
	assert.ErrorContains(t, err, "course_code")
}

// ===========================================================================
// Client
// ===========================================================================

func TestClientFetch(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"observations":[{"course_code":"MT1003","credits":4,"numeric_score":5}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", 2*time.Second, 0)
	client.Token = "secret"

	doc, err := client.Fetch(context.Background(), "s 1")
	require.NoError(t, err)

	assert.Equal(t, "/students/s%201/transcript", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "s 1", doc.StudentID)
	require.Len(t, doc.Batch(), 1)
	assert.Equal(t, 5.0, doc.Batch()[0].NumericScore)
}

func TestClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such student", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second, 10).Fetch(context.Background(), "ghost")
	require.Error(t, err)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.Code)
	assert.Equal(t, "no such student", statusErr.Body)
}

func TestClientResponseTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"student_id":"s1","observations":[` + strings.Repeat(`{"course_code":"MT1003"},`, 20) + `{}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, 0)
	client.MaxResponseBytes = 64

	_, err := client.Fetch(context.Background(), "s1")
	assert.True(t, errors.Is(err, ErrResponseTooLarge))

	client.MaxResponseBytes = 0
	doc, err := client.Fetch(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, doc.Observations, 21)
}

func TestClientCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL, time.Second, 1).Fetch(ctx, "s1")
	assert.Error(t, err)
}

func TestClientRequiresStudentID(t *testing.T) {
	_, err := NewClient("http://unused", time.Second, 0).Fetch(context.Background(), " ")
	assert.Error(t, err)
}
