package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, CommandHelp, parsed.Command)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/parley.yaml", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/parley.yaml", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		want    Parsed
	}{
		{
			name: "help short flag",
			args: []string{"-h"},
			want: Parsed{Command: CommandHelp, ShowHelp: true},
		},
		{
			name: "version flag",
			args: []string{"--version"},
			want: Parsed{Command: CommandVersion},
		},
		{
			name: "interview with agent",
			args: []string{"interview", "--agent", "0vdorfV4DR2C8SZXJsLQ"},
			want: Parsed{Command: CommandInterview, AgentID: "0vdorfV4DR2C8SZXJsLQ"},
		},
		{
			name: "stop with config",
			args: []string{"--config", "/tmp/cfg", "stop"},
			want: Parsed{Command: CommandStop, ConfigPath: "/tmp/cfg"},
		},
		{
			name: "results by id",
			args: []string{"results", "--id", "abc"},
			want: Parsed{Command: CommandResults, InterviewID: "abc"},
		},
		{
			name: "results by error code",
			args: []string{"results", "--error", "missing_data"},
			want: Parsed{Command: CommandResults, ErrorCode: "missing_data"},
		},
		{
			name: "results without target",
			args: []string{"results"},
			want: Parsed{Command: CommandResults},
		},
		{
			name: "ask joins question words",
			args: []string{"ask", "--id", "abc", "why", "a", "two?"},
			want: Parsed{Command: CommandAsk, InterviewID: "abc", Question: "why a two?"},
		},
		{
			name:    "results with both targets",
			args:    []string{"results", "--id", "abc", "--error", "missing_data"},
			wantErr: "not both",
		},
		{
			name:    "ask without id",
			args:    []string{"ask", "why?"},
			wantErr: "ask requires --id",
		},
		{
			name:    "ask without question",
			args:    []string{"ask", "--id", "abc"},
			wantErr: "ask requires a question",
		},
		{
			name:    "agent flag on wrong command",
			args:    []string{"status", "--agent", "x"},
			wantErr: "unknown flag for status",
		},
		{
			name:    "agent flag without value",
			args:    []string{"interview", "--agent"},
			wantErr: "--agent requires a value",
		},
		{
			name:    "missing config path",
			args:    []string{"--config"},
			wantErr: "requires a path",
		},
		{
			name:    "unknown flag",
			args:    []string{"--bogus"},
			wantErr: "unknown flag",
		},
		{
			name:    "unknown command",
			args:    []string{"toggle"},
			wantErr: "unknown command",
		},
		{
			name:    "extra args after command",
			args:    []string{"doctor", "extra"},
			wantErr: "unexpected arguments",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, parsed)
		})
	}
}

func TestHelpTextIncludesCoreCommands(t *testing.T) {
	text := HelpText("parley")
	require.Contains(t, text, "interview [--agent ID]")
	require.Contains(t, text, "results --id ID | --error CODE")
	require.Contains(t, text, "serve")
	require.Contains(t, text, "doctor")
	require.Contains(t, text, "--config PATH")
}
