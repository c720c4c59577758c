// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"encoding/json"
	"errors"
)

// envelopeRecord is one element of a tool result content array.
type envelopeRecord struct {
	Type string  `json:"type,omitempty"`
	Text *string `json:"text"`
}

// DecodeEnvelope extracts the text of the first content record.
//
// # Description
//
// First decoding stage. The payload must be a JSON array whose first
// element carries a string "text" field; later elements are ignored.
//
// # Outputs
//
//   - string: The first record's text, verbatim.
//   - error: *Error with Kind ErrEnvelopeDecode or ErrEmptyResult.
func DecodeEnvelope(ref Ref, payload []byte) (string, error) {
	var records []envelopeRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return "", newError(StageEnvelope, ref, ErrEnvelopeDecode, err)
	}
	if len(records) == 0 {
		return "", newError(StageEnvelope, ref, ErrEmptyResult, nil)
	}
	if records[0].Text == nil {
		return "", newError(StageEnvelope, ref, ErrEnvelopeDecode,
			errors.New(`first record has no "text" field`))
	}
	return *records[0].Text, nil
}

// DecodeText unmarshals the inner text into out.
//
// Second decoding stage. Unknown fields are ignored.
func DecodeText(ref Ref, text string, out any) error {
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return newError(StagePayload, ref, ErrPayloadDecode, err)
	}
	return nil
}

// Decode runs both stages.
func Decode(ref Ref, payload []byte, out any) error {
	text, err := DecodeEnvelope(ref, payload)
	if err != nil {
		return err
	}
	return DecodeText(ref, text, out)
}
