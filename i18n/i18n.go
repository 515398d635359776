// Package i18n holds the localized texts shown in the status banner.
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

// Key identifies a localized message.
type Key int

const (
	InsufficientFunds Key = iota
	UserRejected
	BalanceExceeded
	NonceConflict
	Submitted
	DepositDone
	WithdrawDone
	OwnerDepositDone
	Refreshed
)

var supported = []language.Tag{
	language.English, // first one is the fallback
	language.Chinese,
}

var matcher = language.NewMatcher(supported)

var catalogs = map[language.Tag]map[Key]string{
	language.English: {
		InsufficientFunds: "insufficient balance, please check your wallet balance",
		UserRejected:      "transaction cancelled by user",
		BalanceExceeded:   "withdrawal exceeds available balance",
		NonceConflict:     "transaction nonce error, please refresh and try again",
		Submitted:         "transaction submitted, awaiting confirmation...",
		DepositDone:       "deposit succeeded",
		WithdrawDone:      "withdrawal succeeded",
		OwnerDepositDone:  "owner deposit succeeded",
		Refreshed:         "data refreshed",
	},
	language.Chinese: {
		InsufficientFunds: "余额不足，请检查您的钱包余额",
		UserRejected:      "您取消了交易",
		BalanceExceeded:   "提款金额超过可用余额",
		NonceConflict:     "交易 nonce 错误，请刷新页面重试",
		Submitted:         "交易已提交，等待确认...",
		DepositDone:       "存款成功！",
		WithdrawDone:      "提款成功！",
		OwnerDepositDone:  "Owner 存款成功！",
		Refreshed:         "数据更新成功",
	},
}

// Catalog resolves message keys into texts of a single language.
type Catalog struct {
	tag  language.Tag
	msgs map[Key]string
}

// New returns the catalog that best matches the given language preference
// (for example "zh-CN" or "en-US,en;q=0.9"). Unknown or empty preferences
// fall back to English.
func New(pref string) *Catalog {
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	_, idx, _ := matcher.Match(tags...)
	tag := supported[idx]
	return &Catalog{tag: tag, msgs: catalogs[tag]}
}

// Language returns the language of the catalog.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Text returns the localized text for the key.
func (c *Catalog) Text(k Key) string {
	if msg, ok := c.msgs[k]; ok {
		return msg
	}
	if msg, ok := catalogs[language.English][k]; ok {
		return msg
	}
	return fmt.Sprintf("i18n: missing message %d", k)
}
