package model

type ConvertRequestBody struct {
	Text string `json:"text"`
}

type ConvertResponse struct {
	Id       string `json:"id"`
	Lilypond string `json:"lilypond"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}
