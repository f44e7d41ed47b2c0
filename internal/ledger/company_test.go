package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Infosys Limited", "INFOSYS LTD"},
		{"INFOSYS LTD.", "INFOSYS LTD"},
		{"Tata Consultancy Services Limited", "TATA CONSULTANCY SERVICES LTD"},
		{"Acme Incorporated", "ACME INC"},
		{"Acme, Inc.", "ACME INC"},
		{"Bharat Corporation", "BHARAT CORP"},
		{"Widgets Private Limited", "WIDGETS PVT LTD"},
		{"  spaced   out  ", "SPACED OUT"},
		{"D-Mart (Avenue Supermarts)", "D MART AVENUE SUPERMARTS"},
		{"", ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeCompanyName(tc.in))
		})
	}
}

func TestNormalizeCompanyNameJoinsBothSources(t *testing.T) {
	// the trade row and the bonus feed spell the company differently but
	// must land on the same join key
	assert.Equal(t,
		NormalizeCompanyName("Infosys Limited"),
		NormalizeCompanyName("INFOSYS LTD."),
	)
}
