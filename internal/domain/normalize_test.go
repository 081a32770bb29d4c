package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() CreatePillInput {
	return CreatePillInput{
		Title:        "Aspirin",
		Methods:      []string{"email"},
		StartDateUTC: "2024-01-01T08:00:00Z",
		NextDateUTC:  "2024-01-01T20:00:00Z",
	}
}

func TestNormalizeCreatePill(t *testing.T) {
	t.Parallel()

	t.Run("aspirin scenario", func(t *testing.T) {
		t.Parallel()
		draft, err := NormalizeCreatePill(validInput(), nil)
		require.NoError(t, err)

		assert.Equal(t, "Aspirin", draft.Title)
		assert.Equal(t, []string{"email"}, draft.Methods)
		assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), draft.Rule.StartDate)
		assert.Equal(t, int64(43200000), draft.Rule.StepMillis())
		assert.Nil(t, draft.Rule.CurrentDate)
	})

	t.Run("round trip keeps millisecond precision", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.StartDateUTC = "2024-03-10T10:15:30.123Z"
		in.NextDateUTC = "2024-03-10T10:15:31.456Z"

		draft, err := NormalizeCreatePill(in, nil)
		require.NoError(t, err)

		t0 := time.Date(2024, 3, 10, 10, 15, 30, 123_000_000, time.UTC)
		t1 := time.Date(2024, 3, 10, 10, 15, 31, 456_000_000, time.UTC)
		assert.True(t, draft.Rule.StartDate.Equal(t0))
		assert.Equal(t, t1.Sub(t0), draft.Rule.Step)
	})

	t.Run("short title", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Title = "Ab"

		draft, err := NormalizeCreatePill(in, nil)
		require.Error(t, err)
		assert.Nil(t, draft)
		assert.True(t, errors.Is(err, ErrValidation))
		assert.Equal(t, []string{MsgTitleTooShort}, ValidationMessages(err))
	})

	t.Run("title length counts characters", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Title = "Ωμέ"

		_, err := NormalizeCreatePill(in, nil)
		assert.NoError(t, err)
	})

	t.Run("errors accumulate in order", func(t *testing.T) {
		t.Parallel()
		_, err := NormalizeCreatePill(CreatePillInput{
			Title:        "",
			Methods:      nil,
			StartDateUTC: "not a date",
			NextDateUTC:  "",
		}, nil)
		require.Error(t, err)
		assert.Equal(t, []string{
			MsgTitleTooShort,
			MsgNoMethods,
			MsgInvalidStartDate,
			MsgInvalidNextDate,
		}, ValidationMessages(err))
	})

	t.Run("title and methods both reported", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Title = "x"
		in.Methods = []string{}

		_, err := NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgTitleTooShort, MsgNoMethods}, ValidationMessages(err))
	})

	t.Run("blank methods count as none", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Methods = []string{"", "  "}

		_, err := NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgNoMethods}, ValidationMessages(err))
	})

	t.Run("next equal to start is rejected", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.NextDateUTC = in.StartDateUTC

		_, err := NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgNextNotAfterStart}, ValidationMessages(err))
	})

	t.Run("next before start is rejected", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.NextDateUTC = "2023-12-31T08:00:00Z"

		_, err := NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgNextNotAfterStart}, ValidationMessages(err))
	})

	t.Run("next one millisecond after start is accepted", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.NextDateUTC = "2024-01-01T08:00:00.001Z"

		draft, err := NormalizeCreatePill(in, nil)
		require.NoError(t, err)
		assert.Equal(t, time.Millisecond, draft.Rule.Step)
	})

	t.Run("whitespace does not count toward the title", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Title = "   "

		_, err := NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgTitleTooShort}, ValidationMessages(err))

		in.Title = "  Ab  "
		_, err = NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgTitleTooShort}, ValidationMessages(err))
	})

	t.Run("title is stored trimmed", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Title = "  Aspirin "

		draft, err := NormalizeCreatePill(in, nil)
		require.NoError(t, err)
		assert.Equal(t, "Aspirin", draft.Title)
	})

	t.Run("step beyond 292 years is rejected", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.StartDateUTC = "2024-01-01T00:00:00Z"
		in.NextDateUTC = "2400-01-01T00:00:00Z"

		draft, err := NormalizeCreatePill(in, nil)
		assert.Nil(t, draft)
		assert.Equal(t, []string{MsgStepTooLong}, ValidationMessages(err))
	})

	t.Run("step of 290 years is exact", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.StartDateUTC = "2024-01-01T00:00:00Z"
		in.NextDateUTC = "2314-01-01T00:00:00.001Z"

		draft, err := NormalizeCreatePill(in, nil)
		require.NoError(t, err)

		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		next := time.Date(2314, 1, 1, 0, 0, 0, 1_000_000, time.UTC)
		assert.Equal(t, next.UnixMilli()-start.UnixMilli(), draft.Rule.StepMillis())
		assert.True(t, draft.Rule.StartDate.Add(draft.Rule.Step).Equal(next))
	})

	t.Run("methods outside the allowed set are rejected", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Methods = []string{"email", "fax", "pigeon", "fax"}

		_, err := NormalizeCreatePill(in, NewMethodSet("email", "sms"))
		assert.Equal(t, []string{fmt.Sprintf(MsgUnsupportedMethod, "fax, pigeon")}, ValidationMessages(err))
	})

	t.Run("allowed methods are accepted", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Methods = []string{"sms", " email "}

		draft, err := NormalizeCreatePill(in, NewMethodSet("email", "sms"))
		require.NoError(t, err)
		assert.Equal(t, []string{"sms", "email"}, draft.Methods)
	})

	t.Run("unsupported method reported after title", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.Title = "x"
		in.Methods = []string{"fax"}

		_, err := NormalizeCreatePill(in, NewMethodSet("email"))
		assert.Equal(t, []string{
			MsgTitleTooShort,
			fmt.Sprintf(MsgUnsupportedMethod, "fax"),
		}, ValidationMessages(err))
	})

	t.Run("ordering not checked when a date is invalid", func(t *testing.T) {
		t.Parallel()
		in := validInput()
		in.StartDateUTC = "garbage"

		_, err := NormalizeCreatePill(in, nil)
		assert.Equal(t, []string{MsgInvalidStartDate}, ValidationMessages(err))
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
		err   bool
	}{
		{name: "RFC3339 UTC", input: "2024-01-01T08:00:00Z", want: want},
		{name: "RFC3339 offset", input: "2024-01-01T10:00:00+02:00", want: want},
		{name: "zone-less seconds", input: "2024-01-01T08:00:00", want: want},
		{name: "zone-less minutes", input: "2024-01-01T08:00", want: want},
		{name: "space separated", input: "2024-01-01 08:00:00", want: want},
		{name: "date only", input: "2024-01-01", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "sub-millisecond truncated", input: "2024-01-01T08:00:00.0009Z", want: want},
		{name: "empty", input: "", err: true},
		{name: "nonsense", input: "tomorrow", err: true},
		{name: "out of range", input: "2024-13-01T08:00:00Z", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTimestamp(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
