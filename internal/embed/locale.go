package embed

// messages holds the translatable strings used in embeds. Anything beyond
// these few labels stays English.
type messages struct {
	newCode      string
	activeCodes  string
	redeem       string
	rewards      string
	noCodes      string
	happyNewYear string
	newYearBody  string
}

var locales = map[string]messages{
	"en": {
		newCode:      "New Code",
		activeCodes:  "Active Codes",
		redeem:       "Redeem",
		rewards:      "Rewards",
		noCodes:      "No active codes right now.",
		happyNewYear: "Happy New Year",
		newYearBody:  "Wishing your server a wonderful year of codes and primogems!",
	},
	"vi": {
		newCode:      "Mã Mới",
		activeCodes:  "Mã Đang Hoạt Động",
		redeem:       "Đổi mã",
		rewards:      "Phần thưởng",
		noCodes:      "Hiện không có mã nào.",
		happyNewYear: "Chúc Mừng Năm Mới",
		newYearBody:  "Chúc server của bạn một năm mới tràn ngập mã và nguyên thạch!",
	},
	"ja": {
		newCode:      "新しいコード",
		activeCodes:  "有効なコード",
		redeem:       "交換する",
		rewards:      "報酬",
		noCodes:      "現在有効なコードはありません。",
		happyNewYear: "あけましておめでとうございます",
		newYearBody:  "今年もコードと原石に恵まれた一年になりますように！",
	},
}

func messagesFor(lang string) messages {
	if m, ok := locales[lang]; ok {
		return m
	}
	return locales["en"]
}
