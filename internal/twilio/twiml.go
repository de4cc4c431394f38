package twilio

import (
	"encoding/xml"
)

// ContentType is the media type for TwiML replies.
const ContentType = "application/xml; charset=utf-8"

// MessagingResponse is the TwiML document a webhook returns; the platform
// relays each contained message back to the sender.
type MessagingResponse struct {
	XMLName  xml.Name  `xml:"Response"`
	Messages []Message `xml:"Message"`
}

// Message is a single outbound message body.
type Message struct {
	Body string `xml:",chardata"`
}

// Reply renders a single-message TwiML document including the XML prolog.
func Reply(body string) ([]byte, error) {
	doc := MessagingResponse{Messages: []Message{{Body: body}}}

	out, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
