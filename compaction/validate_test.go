package compaction

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateSummary(t *testing.T) {
	config := DefaultConfig()

	valid := strings.Repeat("The workflow established the ingestion pipeline design. ", 6)

	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{
			name:    "valid summary",
			text:    valid,
			wantErr: false,
		},
		{
			name:    "empty",
			text:    "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			text:    "   \n\t  ",
			wantErr: true,
		},
		{
			name:    "too short",
			text:    "Work continued on the service.",
			wantErr: true,
		},
		{
			name:    "refusal short",
			text:    "I don't see any content to summarize",
			wantErr: true,
		},
		{
			name: "refusal padded past minimum length",
			text: "I don't see any content to summarize in the provided entries. " +
				strings.Repeat("If you share the conversation I will gladly produce a structured summary. ", 4),
			wantErr: true,
		},
		{
			name: "refusal marker case insensitive",
			text: "THERE IS NO CONTENT available for summarization here. " +
				strings.Repeat("Please provide the workflow history entries you would like summarized. ", 4),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSummary(tt.text, config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSummary() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrSummarizerRejected) {
				t.Errorf("error %v does not wrap ErrSummarizerRejected", err)
			}
		})
	}
}

func TestValidateSummaryMinCharsConfigurable(t *testing.T) {
	config := DefaultConfig()
	config.SummaryMinChars = 10

	if err := ValidateSummary("long enough now", config); err != nil {
		t.Errorf("ValidateSummary() error = %v, want nil with lowered minimum", err)
	}
}
