package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// 配置键常量（settings 表）
const (
	SettingStartText        = "start_text"        // /start 欢迎文案
	SettingHelpText         = "help_text"         // /help 文案
	SettingStartImage       = "start_image"       // /start 配图的 file_id
	SettingHelpImage        = "help_image"        // /help 配图的 file_id
	SettingOptionalChannels = "optional_channels" // 推荐频道列表（JSON）
	SettingForceChannels    = "force_channels"    // 强制加入频道列表（JSON）
	SettingBotUsername      = "bot_username"      // Bot username（深链接用）
)

// 频道数量上限
const (
	MaxOptionalChannels = 4
	MaxForceChannels    = 3
)

// ChannelRef 频道引用
type ChannelRef struct {
	Name string `json:"name"` // 操作者提供的原始引用：数字 ID、@username 或 t.me 链接
	Link string `json:"link"` // 展示给用户的可点击链接（数字 ID 无法反推时为空）
}

// Ref 返回用于 API 解析的引用，优先用链接
func (c ChannelRef) Ref() string {
	if c.Link != "" {
		return c.Link
	}
	return c.Name
}

// ParseChannelArg 解析操作者输入的频道引用
func ParseChannelArg(arg string) (ChannelRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return ChannelRef{}, fmt.Errorf("empty channel reference")
	}

	switch {
	case strings.HasPrefix(arg, "-"):
		return ChannelRef{Name: arg}, nil
	case strings.HasPrefix(arg, "@"):
		return ChannelRef{Name: arg, Link: "https://t.me/" + strings.TrimPrefix(arg, "@")}, nil
	case strings.HasPrefix(arg, "https://t.me/"), strings.HasPrefix(arg, "http://t.me/"), strings.HasPrefix(arg, "t.me/"):
		name := arg
		name = strings.TrimPrefix(name, "https://")
		name = strings.TrimPrefix(name, "http://")
		name = strings.TrimPrefix(name, "t.me/")
		name = strings.Trim(name, "/")
		if name == "" {
			return ChannelRef{}, fmt.Errorf("invalid channel link: %s", arg)
		}
		return ChannelRef{Name: "@" + name, Link: "https://t.me/" + name}, nil
	default:
		return ChannelRef{}, fmt.Errorf("unsupported channel reference: %s", arg)
	}
}

// EncodeChannelList 序列化频道列表
func EncodeChannelList(channels []ChannelRef) (string, error) {
	data, err := json.Marshal(channels)
	if err != nil {
		return "", fmt.Errorf("failed to encode channel list: %w", err)
	}
	return string(data), nil
}

// DecodeChannelList 解析频道列表
func DecodeChannelList(value string) ([]ChannelRef, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	var channels []ChannelRef
	if err := json.Unmarshal([]byte(value), &channels); err != nil {
		return nil, fmt.Errorf("failed to decode channel list: %w", err)
	}
	return channels, nil
}
