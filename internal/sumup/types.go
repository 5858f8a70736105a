package sumup

import "encoding/json"

// Transaction is one raw record as returned by the transactions history
// endpoint. Fields the pipeline does not project are kept so the normalizer
// can filter on them; anything else the API sends is discarded at decode
// time. No uniqueness is guaranteed: overlapping windows and API retries can
// surface the same transaction on more than one page.
type Transaction struct {
	ID              string      `json:"id"`
	TransactionCode string      `json:"transaction_code"`
	Timestamp       string      `json:"timestamp"`
	Status          string      `json:"status"`
	Amount          json.Number `json:"amount"`
	Currency        string      `json:"currency"`
	PaymentType     string      `json:"payment_type"`
}

// Link is one pagination link from the response body. The API signals more
// pages with rel="next"; href carries the query string for the next request.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

// historyPage is the envelope of one paginated response. Items is a pointer
// so a page that omits the items key entirely (a protocol error) can be told
// apart from an empty page.
type historyPage struct {
	Items *[]Transaction `json:"items"`
	Links []Link         `json:"links"`
}

func (p *historyPage) nextHref() (string, bool) {
	for _, l := range p.Links {
		if l.Rel == "next" {
			return l.Href, true
		}
	}
	return "", false
}
