package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const meetingCodeChars = "abcdefghijkmnpqrstuvwxyz"

// MeetingReferenceGenerator produces the join link stored on a new booking.
type MeetingReferenceGenerator interface {
	Generate() (string, error)
}

// LinkGenerator builds links of the form "<base>/abc-defg-hij".
type LinkGenerator struct {
	baseURL string
}

// NewLinkGenerator creates a LinkGenerator rooted at baseURL.
func NewLinkGenerator(baseURL string) *LinkGenerator {
	return &LinkGenerator{baseURL: strings.TrimRight(baseURL, "/")}
}

// Generate returns a fresh meeting link.
func (g *LinkGenerator) Generate() (string, error) {
	code, err := generateMeetingCode()
	if err != nil {
		return "", err
	}
	return g.baseURL + "/" + code, nil
}

// generateMeetingCode creates a code in the format "xxx-xxxx-xxx".
func generateMeetingCode() (string, error) {
	groups := []int{3, 4, 3}
	var sb strings.Builder
	for gi, n := range groups {
		if gi > 0 {
			sb.WriteByte('-')
		}
		for i := 0; i < n; i++ {
			idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(meetingCodeChars))))
			if err != nil {
				return "", fmt.Errorf("failed to generate meeting code: %w", err)
			}
			sb.WriteByte(meetingCodeChars[idx.Int64()])
		}
	}
	return sb.String(), nil
}
