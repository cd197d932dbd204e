package model

import (
	"errors"
	"testing"
)

func TestCanTransition_AllowsExpectedPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StatusDownloading},
		{StatusDownloading, StatusDownloading},
		{StatusDownloading, StatusCompleted},
		{StatusDownloading, StatusFailed},
	}

	for _, tc := range cases {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be allowed", tc.from, tc.to)
		}
	}
}

func TestCanTransition_RejectsInvalidPaths(t *testing.T) {
	cases := []struct {
		from string
		to   string
	}{
		{"", StatusCompleted},
		{StatusFailed, StatusDownloading},
		{StatusCompleted, StatusDownloading},
		{StatusCompleted, StatusFailed},
		{"not_a_state", StatusDownloading},
	}

	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected transition %q -> %q to be rejected", tc.from, tc.to)
		}
	}
}

func TestTransitionTaskStatus_BlocksResumeAfterFailure(t *testing.T) {
	task := DownloadTask{ID: "task-1", Status: StatusFailed, Reason: ReasonTransfer}

	err := TransitionTaskStatus(&task, StatusDownloading, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if task.Status != StatusFailed || task.Reason != ReasonTransfer {
		t.Fatalf("task mutated by rejected transition: %+v", task)
	}
}

func TestPercentIsBounded(t *testing.T) {
	cases := []struct {
		progress float64
		want     int
	}{
		{-0.5, 0},
		{0, 0},
		{0.499, 49},
		{1, 100},
		{1.7, 100},
	}
	for _, tc := range cases {
		if got := (DownloadTask{Progress: tc.progress}).Percent(); got != tc.want {
			t.Fatalf("Percent(%v) = %d, want %d", tc.progress, got, tc.want)
		}
	}
}
