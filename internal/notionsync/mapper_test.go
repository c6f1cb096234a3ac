package notionsync

import (
	"testing"
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/jomei/notionapi"
)

func TestTransactionToNotionProperties(t *testing.T) {
	tx := ledgerEntry("tx-1")
	tx.Date = time.Date(2024, 6, 12, 18, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	tx.PaymentOrigin = "Mercury ONIL"

	props := TransactionToNotionProperties(tx)

	title, ok := props[PropDescription].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "OpenAI" {
		t.Errorf("Description = %#v", props[PropDescription])
	}
	if got := props[PropAmount].(notionapi.NumberProperty).Number; got != 45 {
		t.Errorf("Amount = %v, want 45", got)
	}
	date := props[PropDate].(notionapi.DateProperty).Date.Start
	if got := time.Time(*date); !got.Equal(time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", got)
	}

	selects := map[string]string{
		PropCategory: string(domain.CategoryTools),
		PropSource:   string(domain.SourceBank),
		PropStatus:   string(domain.StatusCompleted),
	}
	for name, want := range selects {
		if got := props[name].(notionapi.SelectProperty).Select.Name; got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if got := props[PropPaymentOrigin].(notionapi.RichTextProperty).RichText[0].Text.Content; got != "Mercury ONIL" {
		t.Errorf("Payment Origin = %q", got)
	}

	tx.PaymentOrigin = ""
	if _, ok := TransactionToNotionProperties(tx)[PropPaymentOrigin]; ok {
		t.Error("empty payment origin should be omitted")
	}
}

func TestExtractTransactionID(t *testing.T) {
	tests := []struct {
		name string
		page notionapi.Page
		want string
	}{
		{name: "plain text", page: notionPage("p", "tx-9"), want: "tx-9"},
		{name: "missing", page: notionPage("p", ""), want: ""},
		{
			name: "text content only",
			page: notionapi.Page{Properties: notionapi.Properties{
				PropTransactionID: &notionapi.RichTextProperty{
					RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: "tx-7"}}},
				},
			}},
			want: "tx-7",
		},
		{
			name: "wrong type",
			page: notionapi.Page{Properties: notionapi.Properties{
				PropTransactionID: &notionapi.NumberProperty{Number: 7},
			}},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTransactionID(tt.page); got != tt.want {
				t.Errorf("extractTransactionID() = %q, want %q", got, tt.want)
			}
		})
	}
}
