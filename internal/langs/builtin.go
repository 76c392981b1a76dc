package langs

import "github.com/AMIRHOSSEIN-AHMADI-IR/motargem/internal/storage"

// builtin is the fixed language catalog compiled into the binary. Display
// names are Persian, matching the app's UI locale; EnglishName is what
// gets embedded into prompts for the model.
var builtin = []storage.Language{
	{Code: "fa", Name: "فارسی", EnglishName: "Persian", Dir: "rtl"},
	{Code: "en", Name: "انگلیسی", EnglishName: "English", Dir: "ltr"},
	{Code: "ar", Name: "عربی", EnglishName: "Arabic", Dir: "rtl"},
	{Code: "fr", Name: "فرانسوی", EnglishName: "French", Dir: "ltr"},
	{Code: "de", Name: "آلمانی", EnglishName: "German", Dir: "ltr"},
	{Code: "es", Name: "اسپانیایی", EnglishName: "Spanish", Dir: "ltr"},
	{Code: "it", Name: "ایتالیایی", EnglishName: "Italian", Dir: "ltr"},
	{Code: "ru", Name: "روسی", EnglishName: "Russian", Dir: "ltr"},
	{Code: "zh", Name: "چینی", EnglishName: "Chinese", Dir: "ltr"},
	{Code: "ja", Name: "ژاپنی", EnglishName: "Japanese", Dir: "ltr"},
	{Code: "ko", Name: "کره‌ای", EnglishName: "Korean", Dir: "ltr"},
	{Code: "tr", Name: "ترکی استانبولی", EnglishName: "Turkish", Dir: "ltr"},
	{Code: "pt", Name: "پرتغالی", EnglishName: "Portuguese", Dir: "ltr"},
	{Code: "hi", Name: "هندی", EnglishName: "Hindi", Dir: "ltr"},
	{Code: "ur", Name: "اردو", EnglishName: "Urdu", Dir: "rtl"},
	{Code: "nl", Name: "هلندی", EnglishName: "Dutch", Dir: "ltr"},
	{Code: "sv", Name: "سوئدی", EnglishName: "Swedish", Dir: "ltr"},
	{Code: "no", Name: "نروژی", EnglishName: "Norwegian", Dir: "ltr"},
	{Code: "da", Name: "دانمارکی", EnglishName: "Danish", Dir: "ltr"},
	{Code: "fi", Name: "فنلاندی", EnglishName: "Finnish", Dir: "ltr"},
	{Code: "pl", Name: "لهستانی", EnglishName: "Polish", Dir: "ltr"},
	{Code: "el", Name: "یونانی", EnglishName: "Greek", Dir: "ltr"},
	{Code: "he", Name: "عبری", EnglishName: "Hebrew", Dir: "rtl"},
	{Code: "id", Name: "اندونزیایی", EnglishName: "Indonesian", Dir: "ltr"},
	{Code: "th", Name: "تایلندی", EnglishName: "Thai", Dir: "ltr"},
	{Code: "vi", Name: "ویتنامی", EnglishName: "Vietnamese", Dir: "ltr"},
	{Code: "uk", Name: "اوکراینی", EnglishName: "Ukrainian", Dir: "ltr"},
	{Code: "cs", Name: "چکی", EnglishName: "Czech", Dir: "ltr"},
	{Code: "ro", Name: "رومانیایی", EnglishName: "Romanian", Dir: "ltr"},
	{Code: "hu", Name: "مجارستانی", EnglishName: "Hungarian", Dir: "ltr"},
	{Code: "az", Name: "آذربایجانی", EnglishName: "Azerbaijani", Dir: "ltr"},
	{Code: "ku", Name: "کردی", EnglishName: "Kurdish", Dir: "rtl"},
}

// Builtin returns a copy of the built-in catalog.
func Builtin() []storage.Language {
	out := make([]storage.Language, len(builtin))
	copy(out, builtin)
	return out
}
