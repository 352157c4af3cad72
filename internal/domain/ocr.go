package domain

// OCRDocument is the document-analysis result for one terms-and-conditions
// document. Only the text of each line is used; other keys are ignored.
type OCRDocument struct {
	Pages []Page `json:"pages"`
}

// Page is an ordered sequence of recognized lines.
type Page struct {
	Lines []Line `json:"lines"`
}

// Line holds a single recognized line. A missing "text" decodes to "".
type Line struct {
	Text string `json:"text"`
}
