// Package i18n holds the user-facing strings shown when a conversion fails.
//
// The frontend the service was built for is Arabic-first, so Arabic is the
// fallback locale. English is available for clients that ask for it through
// Accept-Language.
package i18n

import (
	"golang.org/x/text/language"
)

// Key identifies a user-facing message.
type Key string

const (
	MsgNotPDF           Key = "not_pdf"
	MsgNoFile           Key = "no_file"
	MsgUnexpected       Key = "unexpected"
	MsgExtractionFailed Key = "extraction_failed"
	MsgFormattingFailed Key = "formatting_failed"
	MsgRenderFailed     Key = "render_failed"
	MsgInvalidState     Key = "invalid_state"
	MsgSessionNotFound  Key = "session_not_found"
	MsgQueueFull        Key = "queue_full"
	MsgFileTooLarge     Key = "file_too_large"
	MsgUnsupportedText  Key = "unsupported_text"
	MsgInvalidFormat    Key = "invalid_format"
	MsgRateLimited      Key = "rate_limited"
	MsgAdminDisabled    Key = "admin_disabled"
	MsgAdminDenied      Key = "admin_denied"
	MsgInvalidQuery     Key = "invalid_query"
	MsgHistoryDisabled  Key = "history_disabled"
	MsgHistoryFailed    Key = "history_failed"
)

var supported = []language.Tag{
	language.Arabic, // first entry is the matcher's fallback
	language.English,
}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[Key]string{
	language.Arabic: {
		MsgNotPDF:           "يرجى تحميل ملف PDF فقط",
		MsgNoFile:           "لم يتم اختيار ملف PDF بعد",
		MsgUnexpected:       "حدث خطأ غير متوقع أثناء المعالجة",
		MsgExtractionFailed: "تعذر قراءة ملف PDF",
		MsgFormattingFailed: "فشل في معالجة النص باستخدام الذكاء الاصطناعي",
		MsgRenderFailed:     "فشل في إنشاء ملف Word",
		MsgInvalidState:     "لا يمكن تنفيذ هذا الإجراء في المرحلة الحالية",
		MsgSessionNotFound:  "انتهت الجلسة، يرجى البدء من جديد",
		MsgQueueFull:        "الخادم مشغول حالياً، حاول مرة أخرى لاحقاً",
		MsgFileTooLarge:     "حجم الملف يتجاوز الحد المسموح به",
		MsgUnsupportedText:  "لا يمكن تصدير هذا النص بصيغة PDF، يرجى تنزيل ملف Word",
		MsgInvalidFormat:    "صيغة الملف المطلوبة غير مدعومة",
		MsgRateLimited:      "عدد الطلبات كبير جداً، حاول مرة أخرى بعد قليل",
		MsgAdminDisabled:    "صلاحيات المسؤول غير مفعلة على هذا الخادم",
		MsgAdminDenied:      "مفتاح المسؤول مفقود أو غير صحيح",
		MsgInvalidQuery:     "معاملات الطلب غير صالحة",
		MsgHistoryDisabled:  "سجل التحويلات غير مفعل على هذا الخادم",
		MsgHistoryFailed:    "تعذر تحميل سجل التحويلات",
	},
	language.English: {
		MsgNotPDF:           "Please upload a PDF file only",
		MsgNoFile:           "No PDF file has been selected yet",
		MsgUnexpected:       "An unexpected error occurred during processing",
		MsgExtractionFailed: "The PDF file could not be read",
		MsgFormattingFailed: "Failed to process the text with AI",
		MsgRenderFailed:     "Failed to create the Word file",
		MsgInvalidState:     "This action is not available at the current stage",
		MsgSessionNotFound:  "The session has expired, please start again",
		MsgQueueFull:        "The server is busy, please try again later",
		MsgFileTooLarge:     "The file exceeds the maximum allowed size",
		MsgUnsupportedText:  "This text cannot be exported as PDF, please download the Word file",
		MsgInvalidFormat:    "The requested file format is not supported",
		MsgRateLimited:      "Too many requests, please try again shortly",
		MsgAdminDisabled:    "Admin access is not enabled on this server",
		MsgAdminDenied:      "Missing or invalid admin key",
		MsgInvalidQuery:     "Invalid query parameters",
		MsgHistoryDisabled:  "Conversion history is not enabled on this server",
		MsgHistoryFailed:    "Failed to load the conversion history",
	},
}

// Catalog resolves message keys for a single locale.
type Catalog struct {
	tag language.Tag
}

// Default returns the catalog for the fallback locale.
func Default() Catalog {
	return Catalog{tag: supported[0]}
}

// Match picks the best supported locale for an Accept-Language header value
// (or a bare tag such as "en"). Unparseable or unsupported input falls back
// to Arabic.
func Match(acceptLanguage string) Catalog {
	if c, ok := match(acceptLanguage); ok {
		return c
	}
	return Default()
}

// MatchOr is Match with a configured fallback locale tried before Arabic.
func MatchOr(acceptLanguage, fallback string) Catalog {
	if c, ok := match(acceptLanguage); ok {
		return c
	}
	return Match(fallback)
}

func match(acceptLanguage string) (Catalog, bool) {
	if acceptLanguage == "" {
		return Catalog{}, false
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return Catalog{}, false
	}
	// The matcher always returns some index; No means nothing was close.
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Catalog{}, false
	}
	return Catalog{tag: supported[idx]}, true
}

// Lang returns the BCP 47 code of the catalog's locale.
func (c Catalog) Lang() string {
	base, _ := c.tag.Base()
	return base.String()
}

// Text returns the message for key, falling back to the default locale and
// finally to the key itself.
func (c Catalog) Text(key Key) string {
	if msgs, ok := catalog[c.tag]; ok {
		if s, ok := msgs[key]; ok {
			return s
		}
	}
	if s, ok := catalog[supported[0]][key]; ok {
		return s
	}
	return string(key)
}
