package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// 随机别名本地部分的词表。形容词+名词+两位数字，可读性好
// 而且组合空间足够大（48*48*100 ≈ 23 万）。

var aliasAdjectives = []string{
	"amber", "ancient", "autumn", "billowing", "bitter", "black", "blue",
	"bold", "broad", "broken", "calm", "cold", "cool", "crimson", "curly",
	"damp", "dark", "dawn", "delicate", "divine", "dry", "empty", "falling",
	"fancy", "floral", "fragrant", "frosty", "gentle", "green", "hidden",
	"holy", "icy", "jolly", "late", "lingering", "little", "lively", "long",
	"misty", "morning", "muddy", "mute", "nameless", "noisy", "odd", "old",
	"orange", "patient",
}

var aliasNouns = []string{
	"art", "band", "bar", "base", "bird", "block", "boat", "bonus",
	"bread", "breeze", "brook", "bush", "butterfly", "cake", "cell",
	"cherry", "cloud", "credit", "darkness", "dawn", "dew", "disk",
	"dream", "dust", "feather", "field", "fire", "firefly", "flower",
	"fog", "forest", "frog", "frost", "glade", "glitter", "grass",
	"hall", "hat", "haze", "heart", "hill", "king", "lab", "lake",
	"leaf", "limit", "math", "meadow",
}

// randomLocalPart 用 crypto/rand 生成一个人类可读的随机本地部分。
// 格式固定，熵来源不可预测。
func randomLocalPart() (string, error) {
	adj, err := pick(aliasAdjectives)
	if err != nil {
		return "", err
	}
	noun, err := pick(aliasNouns)
	if err != nil {
		return "", err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s%02d", adj, noun, n.Int64()), nil
}

func pick(words []string) (string, error) {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[i.Int64()], nil
}
