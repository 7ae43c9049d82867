package template

import (
	"math"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/finportal/marketing-console-backend/internal/apperrors"
	"github.com/finportal/marketing-console-backend/internal/models"
)

// Encoding is the SMS character encoding a text requires.
type Encoding string

const (
	EncodingGSM7    Encoding = "GSM7"
	EncodingUnicode Encoding = "Unicode"
)

const (
	gsm7SingleLimit    = 160
	gsm7MultipartLimit = 153
	ucs2SingleLimit    = 70
	ucs2MultipartLimit = 67
)

// GSM 03.38 basic character set
const gsm7Basic = "@£$¥èéùìòÇ\nØø\rÅåΔ_ΦΓΛΩΠΨΣΘΞ\x1bÆæßÉ !\"#¤%&'()*+,-./0123456789:;<=>?" +
	"¡ABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÑÜ§¿abcdefghijklmnopqrstuvwxyzäöñüà"

// GSM 03.38 extension table; each costs an escape plus the character
const gsm7Extension = "\f^{}\\[~]|€"

var (
	gsm7BasicSet     = runeSet(gsm7Basic)
	gsm7ExtensionSet = runeSet(gsm7Extension)
)

func runeSet(s string) map[rune]bool {
	set := make(map[rune]bool, utf8.RuneCountInString(s))
	for _, r := range s {
		set[r] = true
	}
	return set
}

// ClassifyEncoding reports whether text fits the GSM-7 alphabet, including
// the extension table, or needs UCS-2.
func ClassifyEncoding(text string) Encoding {
	for _, r := range text {
		if !gsm7BasicSet[r] && !gsm7ExtensionSet[r] {
			return EncodingUnicode
		}
	}
	return EncodingGSM7
}

// ClassifyEncodingHeuristic flags text as Unicode when any character takes
// more than one byte in UTF-8. It misclassifies GSM-7 characters such as
// '£', 'é' and '€'; ClassifyEncoding should be preferred.
func ClassifyEncodingHeuristic(text string) Encoding {
	if len(text) > utf8.RuneCountInString(text) {
		return EncodingUnicode
	}
	return EncodingGSM7
}

// SegmentInfo describes how a text is split into SMS parts.
type SegmentInfo struct {
	Encoding Encoding `json:"encoding"`
	Length   int      `json:"length"`
	Segments int      `json:"segments"`
}

// Length returns the length of text in encoding units: septets for GSM-7
// (extension characters count twice) and UTF-16 code units for UCS-2.
func Length(text string, enc Encoding) int {
	if enc == EncodingUnicode {
		n := 0
		for _, r := range text {
			n += utf16.RuneLen(r)
		}
		return n
	}
	n := 0
	for _, r := range text {
		if gsm7ExtensionSet[r] {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// ComputeSegments returns the encoding and number of SMS parts for text.
// Empty text has zero segments.
func ComputeSegments(text string) SegmentInfo {
	enc := ClassifyEncoding(text)
	length := Length(text, enc)
	info := SegmentInfo{Encoding: enc, Length: length}
	if length == 0 {
		return info
	}

	single, multi := gsm7SingleLimit, gsm7MultipartLimit
	if enc == EncodingUnicode {
		single, multi = ucs2SingleLimit, ucs2MultipartLimit
	}
	if length <= single {
		info.Segments = 1
	} else {
		info.Segments = int(math.Ceil(float64(length) / float64(multi)))
	}
	return info
}

// ComputeCost prices a message at ratePerSegment per segment.
func ComputeCost(segments int, ratePerSegment float64) float64 {
	if segments <= 0 || ratePerSegment <= 0 {
		return 0
	}
	return math.Round(float64(segments)*ratePerSegment*10000) / 10000
}

// Validate enforces the template contract for a channel: templates must be
// non-empty and SMS templates must be GSM-7.
func Validate(tpl string, channel models.Channel) error {
	if strings.TrimSpace(tpl) == "" {
		return apperrors.NewValidation(apperrors.CodeTemplateEmpty, string(channel)+"_template", "template must not be empty")
	}
	if channel == models.ChannelSMS && ClassifyEncoding(tpl) == EncodingUnicode {
		return apperrors.NewValidation(apperrors.CodeTemplateUnicodeNotAllowed, "message_template",
			"SMS template contains characters outside the GSM-7 alphabet")
	}
	return nil
}
