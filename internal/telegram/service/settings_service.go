package service

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/models"
	"vaultbot/internal/telegram/repository"
)

// 默认文案，首次启动时写入
const (
	defaultStartText = "欢迎，{first_name}！"
	defaultHelpText  = "通过深链接领取内容，有问题请联系管理员。"
)

// SettingsServiceImpl 配置服务实现
type SettingsServiceImpl struct {
	settingRepo repository.SettingRepository
}

// NewSettingsService 创建配置服务
func NewSettingsService(settingRepo repository.SettingRepository) SettingsService {
	return &SettingsServiceImpl{settingRepo: settingRepo}
}

// StartContent 返回 /start 文案与配图
func (s *SettingsServiceImpl) StartContent(ctx context.Context) (*PanelContent, error) {
	return s.panelContent(ctx, models.SettingStartText, models.SettingStartImage, defaultStartText)
}

// HelpContent 返回 /help 文案与配图
func (s *SettingsServiceImpl) HelpContent(ctx context.Context) (*PanelContent, error) {
	return s.panelContent(ctx, models.SettingHelpText, models.SettingHelpImage, defaultHelpText)
}

func (s *SettingsServiceImpl) panelContent(ctx context.Context, textKey, imageKey, fallback string) (*PanelContent, error) {
	text, err := s.settingRepo.Get(ctx, textKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", textKey, err)
	}
	if text == "" {
		text = fallback
	}

	image, err := s.settingRepo.Get(ctx, imageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", imageKey, err)
	}

	return &PanelContent{Text: text, ImageFileID: image}, nil
}

// SetText 设置 start 或 help 文案
func (s *SettingsServiceImpl) SetText(ctx context.Context, target, text string) error {
	key, err := textKeyFor(target)
	if err != nil {
		return err
	}
	if err := s.settingRepo.Set(ctx, key, text); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	logger.L().Infof("Panel text updated: target=%s, length=%d", target, len(text))
	return nil
}

// SetImage 设置 start 或 help 配图
func (s *SettingsServiceImpl) SetImage(ctx context.Context, target, fileID string) error {
	key, err := imageKeyFor(target)
	if err != nil {
		return err
	}
	if err := s.settingRepo.Set(ctx, key, fileID); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	logger.L().Infof("Panel image updated: target=%s", target)
	return nil
}

// OptionalChannels 返回推荐频道列表
func (s *SettingsServiceImpl) OptionalChannels(ctx context.Context) ([]models.ChannelRef, error) {
	return s.channelList(ctx, models.SettingOptionalChannels)
}

// AddOptionalChannel 追加推荐频道，最多 4 个
func (s *SettingsServiceImpl) AddOptionalChannel(ctx context.Context, ref models.ChannelRef) error {
	return s.addChannel(ctx, models.SettingOptionalChannels, ref, models.MaxOptionalChannels)
}

// ClearOptionalChannels 清空推荐频道
func (s *SettingsServiceImpl) ClearOptionalChannels(ctx context.Context) error {
	return s.clearChannels(ctx, models.SettingOptionalChannels)
}

// ForceChannels 返回强制加入频道列表
func (s *SettingsServiceImpl) ForceChannels(ctx context.Context) ([]models.ChannelRef, error) {
	return s.channelList(ctx, models.SettingForceChannels)
}

// AddForceChannel 追加强制频道，最多 3 个
func (s *SettingsServiceImpl) AddForceChannel(ctx context.Context, ref models.ChannelRef) error {
	return s.addChannel(ctx, models.SettingForceChannels, ref, models.MaxForceChannels)
}

// ClearForceChannels 清空强制频道
func (s *SettingsServiceImpl) ClearForceChannels(ctx context.Context) error {
	return s.clearChannels(ctx, models.SettingForceChannels)
}

func (s *SettingsServiceImpl) channelList(ctx context.Context, key string) ([]models.ChannelRef, error) {
	raw, err := s.settingRepo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	channels, err := models.DecodeChannelList(raw)
	if err != nil {
		// 坏数据当作空列表，避免整个面板不可用
		logger.L().Errorf("Malformed channel list in %s: %v", key, err)
		return nil, nil
	}
	return channels, nil
}

func (s *SettingsServiceImpl) addChannel(ctx context.Context, key string, ref models.ChannelRef, limit int) error {
	channels, err := s.channelList(ctx, key)
	if err != nil {
		return err
	}
	if len(channels) >= limit {
		return errors.Wrapf(ErrChannelLimit, "%s holds %d entries", key, limit)
	}

	channels = append(channels, ref)
	encoded, err := models.EncodeChannelList(channels)
	if err != nil {
		return fmt.Errorf("failed to encode channel list: %w", err)
	}
	if err := s.settingRepo.Set(ctx, key, encoded); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	logger.L().Infof("Channel added: key=%s, name=%s, total=%d", key, ref.Name, len(channels))
	return nil
}

func (s *SettingsServiceImpl) clearChannels(ctx context.Context, key string) error {
	if err := s.settingRepo.Set(ctx, key, "[]"); err != nil {
		return fmt.Errorf("failed to clear %s: %w", key, err)
	}
	logger.L().Infof("Channel list cleared: key=%s", key)
	return nil
}

// RecordBotUsername 保存机器人用户名
func (s *SettingsServiceImpl) RecordBotUsername(ctx context.Context, username string) error {
	if err := s.settingRepo.Set(ctx, models.SettingBotUsername, username); err != nil {
		return fmt.Errorf("failed to save bot username: %w", err)
	}
	return nil
}

// EnsureDefaults 补齐缺失的默认文案
func (s *SettingsServiceImpl) EnsureDefaults(ctx context.Context) error {
	defaults := map[string]string{
		models.SettingStartText: defaultStartText,
		models.SettingHelpText:  defaultHelpText,
	}
	for key, value := range defaults {
		current, err := s.settingRepo.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", key, err)
		}
		if current != "" {
			continue
		}
		if err := s.settingRepo.Set(ctx, key, value); err != nil {
			return fmt.Errorf("failed to seed %s: %w", key, err)
		}
	}
	return nil
}

func textKeyFor(target string) (string, error) {
	switch target {
	case "start":
		return models.SettingStartText, nil
	case "help":
		return models.SettingHelpText, nil
	default:
		return "", fmt.Errorf("unknown panel target %q", target)
	}
}

func imageKeyFor(target string) (string, error) {
	switch target {
	case "start":
		return models.SettingStartImage, nil
	case "help":
		return models.SettingHelpImage, nil
	default:
		return "", fmt.Errorf("unknown panel target %q", target)
	}
}
