package monitor

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-i2p/go-rns/lib/common/data"
	"github.com/go-i2p/go-rns/lib/identity"
	"github.com/go-i2p/go-rns/lib/transport"
)

// Event is one dispatched announce.
type Event struct {
	Time         time.Time
	Aspect       string
	Destination  data.Hash
	Identity     string
	AppData      []byte
	PathResponse bool
}

// NewEvent captures an announce delivered to a handler for aspect.
func NewEvent(aspect string, destinationHash data.Hash, announced *identity.Identity, appData []byte, isPathResponse bool) Event {
	e := Event{
		Time:         time.Now(),
		Aspect:       aspect,
		Destination:  destinationHash,
		AppData:      append([]byte(nil), appData...),
		PathResponse: isPathResponse,
	}
	if announced != nil {
		e.Identity = announced.HexHash()
	}
	return e
}

var (
	timeStyle   = lipgloss.NewStyle().Faint(true)
	aspectStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	hashStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	appStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("229"))
	pathStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("244"))
)

const maxAppDataWidth = 48

// Format renders e as one line.
func Format(e Event) string {
	var b strings.Builder
	b.WriteString(timeStyle.Render(e.Time.Format("15:04:05")))
	b.WriteByte(' ')
	b.WriteString(aspectStyle.Render(e.Aspect))
	b.WriteByte(' ')
	b.WriteString(hashStyle.Render(fmt.Sprintf("<%s>", e.Destination)))
	if text := appDataText(e.AppData); text != "" {
		b.WriteByte(' ')
		b.WriteString(appStyle.Render(text))
	}
	if e.PathResponse {
		b.WriteByte(' ')
		b.WriteString(pathStyle.Render("(path response)"))
	}
	return b.String()
}

// appDataText returns printable application data, shortened to fit a line.
// Binary data is shown as its length.
func appDataText(appData []byte) string {
	if len(appData) == 0 {
		return ""
	}
	if !utf8.Valid(appData) || strings.IndexFunc(string(appData), func(r rune) bool { return !unicode.IsPrint(r) }) >= 0 {
		return fmt.Sprintf("[%d bytes]", len(appData))
	}
	text := string(appData)
	if utf8.RuneCountInString(text) > maxAppDataWidth {
		runes := []rune(text)
		text = string(runes[:maxAppDataWidth-1]) + "…"
	}
	return fmt.Sprintf("%q", text)
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Forward returns a callback that sends every announce it is given to s as
// an EventMsg. Its shape matches reticulum.AnnounceFunc.
func Forward(s Sender) func(aspect string, destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error {
	return func(aspect string, destinationHash data.Hash, announced *identity.Identity, appData, _ []byte, isPathResponse bool) error {
		s.Send(EventMsg(NewEvent(aspect, destinationHash, announced, appData, isPathResponse)))
		return nil
	}
}

// Handler returns an announce handler for filter that forwards into s.
func Handler(s Sender, filter string, pathResponses bool) transport.AnnounceHandler {
	forward := Forward(s)
	return transport.NewAnnounceHandler(filter, pathResponses, func(destinationHash data.Hash, announced *identity.Identity, appData, packetHash []byte, isPathResponse bool) error {
		return forward(filter, destinationHash, announced, appData, packetHash, isPathResponse)
	})
}
