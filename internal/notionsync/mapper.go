package notionsync

import (
	"time"

	"github.com/dvloznov/bizledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the ledger mirror database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropCategory      = "Category"
	PropSource        = "Source"
	PropStatus        = "Status"
	PropPaymentOrigin = "Payment Origin"
)

// TransactionToNotionProperties converts a ledger entry to page properties.
// The Transaction ID property is the join key used by Sync.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	amount, _ := tx.Amount.Float64()
	date := notionapi.Date(time.Date(tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(tx.Description)},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.ID)},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropAmount: notionapi.NumberProperty{Number: amount},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Category)},
		},
		PropSource: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Source)},
		},
		PropStatus: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Status)},
		},
	}

	if tx.PaymentOrigin != "" {
		props[PropPaymentOrigin] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.PaymentOrigin)},
		}
	}

	return props
}

func richText(content string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: content},
	}
}

// extractTransactionID reads the join key from a queried page. Returns empty
// string if the property is missing or blank.
func extractTransactionID(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	if rt.RichText[0].PlainText != "" {
		return rt.RichText[0].PlainText
	}
	if rt.RichText[0].Text != nil {
		return rt.RichText[0].Text.Content
	}
	return ""
}
