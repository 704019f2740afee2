package dto

// TranslateRequest asks for a server-side translation. Source may be empty
// for auto-detection.
type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language,omitempty"`
}

// TranslateResponse returns the translated text.
type TranslateResponse struct {
	TranslatedText string `json:"translated_text"`
}
