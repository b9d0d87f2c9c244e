package models

import "time"

// DocumentVerificationRequest asks for structured field extraction from
// the two sides of an identity document. Immutable once decoded.
type DocumentVerificationRequest struct {
	DocumentID    string    `json:"documentId"`
	CallerID      string    `json:"callerId"`
	FrontImageURL string    `json:"frontImageUrl"`
	BackImageURL  string    `json:"backImageUrl"`
	Timestamp     time.Time `json:"timestamp"`
}

// ExtractedFields holds the structured attributes parsed from one side
// of an identity document. Absent fields stay empty strings.
type ExtractedFields struct {
	FullName      string `json:"fullName"`
	IDNumber      string `json:"idNumber"`
	DOB           string `json:"dob"`
	IDType        string `json:"idType"`
	Address       string `json:"address"`
	Gender        string `json:"gender"`
	Nationality   string `json:"nationality"`
	PlaceOfOrigin string `json:"placeOfOrigin"`
	IssueDate     string `json:"issueDate"`
	ExpiryDate    string `json:"expiryDate"`
}

// Merge combines front and back extractions. The front side wins for
// every field except the issue and expiry dates, which are printed on
// the back of the card and therefore prefer the back extraction.
func Merge(front, back ExtractedFields) ExtractedFields {
	return ExtractedFields{
		FullName:      firstNonEmpty(front.FullName, back.FullName),
		IDNumber:      firstNonEmpty(front.IDNumber, back.IDNumber),
		DOB:           firstNonEmpty(front.DOB, back.DOB),
		IDType:        firstNonEmpty(front.IDType, back.IDType),
		Address:       firstNonEmpty(front.Address, back.Address),
		Gender:        firstNonEmpty(front.Gender, back.Gender),
		Nationality:   firstNonEmpty(front.Nationality, back.Nationality),
		PlaceOfOrigin: firstNonEmpty(front.PlaceOfOrigin, back.PlaceOfOrigin),
		IssueDate:     firstNonEmpty(back.IssueDate, front.IssueDate),
		ExpiryDate:    firstNonEmpty(back.ExpiryDate, front.ExpiryDate),
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// DocumentVerificationResult is published to the document result topic,
// keyed by the document id. Confidence is descriptive: it reports field
// completeness, not a pass/fail verdict — the downstream consumer
// decides acceptance.
type DocumentVerificationResult struct {
	DocumentID string          `json:"documentId"`
	CallerID   string          `json:"callerId"`
	Fields     ExtractedFields `json:"extractedData"`
	Confidence float64         `json:"confidence"`
	Error      string          `json:"error,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewDocumentResult builds a success result and stamps it. The
// timestamp is assigned here exactly once and never mutated.
func NewDocumentResult(documentID, callerID string, fields ExtractedFields, confidence float64) DocumentVerificationResult {
	return DocumentVerificationResult{
		DocumentID: documentID,
		CallerID:   callerID,
		Fields:     fields,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}
}

// NewDocumentFailure builds a zero-confidence failure result carrying
// the error text, so the caller receives a terminal outcome instead of
// silence.
func NewDocumentFailure(documentID, callerID, reason string) DocumentVerificationResult {
	return DocumentVerificationResult{
		DocumentID: documentID,
		CallerID:   callerID,
		Error:      reason,
		Timestamp:  time.Now().UTC(),
	}
}
