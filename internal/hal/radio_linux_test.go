//go:build linux

package hal

import (
	"context"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wirelessTable = `Inter-| sta-|   Quality        |   Discarded packets               | Missed | WE
 face | tus | link level noise |  nwid  crypt   frag  retry   misc | beacon | 22
 wlan0: 0000   54.  -56.  -256        0      0      0      0      0        0
`

func TestParseWireless(t *testing.T) {
	level, err := parseWireless(strings.NewReader(wirelessTable), "wlan0")
	require.NoError(t, err)
	assert.Equal(t, -56, level)

	_, err = parseWireless(strings.NewReader(wirelessTable), "wlan1")
	assert.ErrorIs(t, err, ErrNotAssociated)
}

func TestNewRadioRequiresInterface(t *testing.T) {
	_, err := NewRadio("", nil)
	assert.Error(t, err)
}

func TestParseActiveSSID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "active row", input: "no:Cafe\nyes:Home\n", want: "Home", wantOK: true},
		{name: "escaped colon", input: "yes:Home\\:5G\n", want: "Home:5G", wantOK: true},
		{name: "nothing active", input: "no:Cafe\nno:Home\n", wantOK: false},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseActiveSSID(strings.NewReader(tt.input))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// scripted returns a command hook whose nmcli invocations print out.
func scripted(out string, calls *[][]string) func(ctx context.Context, name string, args ...string) *exec.Cmd {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*calls = append(*calls, append([]string{name}, args...))
		return exec.CommandContext(ctx, "printf", "%s", out)
	}
}

func TestJoinRecordsTarget(t *testing.T) {
	r, err := NewRadio("wlan0", nil)
	require.NoError(t, err)
	var calls [][]string
	r.command = scripted("", &calls)

	require.NoError(t, r.Join(context.Background(), "Home", "secret"))
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"nmcli", "device", "wifi", "connect", "Home", "ifname", "wlan0", "password", "secret"}, calls[0])

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Equal(t, "Home", r.target)
}

func TestAssociatedRequiresJoinTarget(t *testing.T) {
	r, err := NewRadio("wlan0", nil)
	require.NoError(t, err)
	var calls [][]string
	r.command = scripted("yes:OldNet\nno:Home\n", &calls)
	ctx := context.Background()

	ok, err := r.associated(ctx)
	require.NoError(t, err)
	assert.True(t, ok, "no join yet, any association counts")
	assert.Empty(t, calls)

	r.target = "Home"
	ok, err = r.associated(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "still on the previous network")

	r.command = scripted("no:OldNet\nyes:Home\n", &calls)
	ok, err = r.associated(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"nmcli", "-t", "-f", "ACTIVE,SSID", "device", "wifi", "list", "ifname", "wlan0", "--rescan", "no"}, calls[len(calls)-1])
}
