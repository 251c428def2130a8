package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHashtags(t *testing.T) {
	tags := ExtractHashtags("今日の #盆栽 の手入れ。#黒松 と #盆栽 の剪定メモ #bonsai")
	assert.Equal(t, []string{"盆栽", "黒松", "bonsai"}, tags)
}

func TestExtractHashtagsNone(t *testing.T) {
	assert.Nil(t, ExtractHashtags("タグなしの投稿です"))
}

func TestExtractMentions(t *testing.T) {
	mentions := ExtractMentions("@matsuo さん、@Kaede_99 と @matsuo の分も水やりしました")
	assert.Equal(t, []string{"matsuo", "Kaede_99"}, mentions)
}

func TestExtractMentionsIgnoresShortNames(t *testing.T) {
	// Account names are at least three characters.
	assert.Nil(t, ExtractMentions("@ab だけ"))
}
