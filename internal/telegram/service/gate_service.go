package service

import (
	"context"

	"vaultbot/internal/logger"
	"vaultbot/internal/telegram/transport"
)

// GateServiceImpl 强制频道门禁实现
type GateServiceImpl struct {
	settings SettingsService
	gateway  transport.Gateway
}

// NewGateService 创建门禁服务
func NewGateService(settings SettingsService, gateway transport.Gateway) GateService {
	return &GateServiceImpl{
		settings: settings,
		gateway:  gateway,
	}
}

// CheckAccess 校验用户是否已加入全部强制频道。
// 无法验证的频道同样拦截：宁可多拦一个用户，也不放走门禁
func (s *GateServiceImpl) CheckAccess(ctx context.Context, userID int64) (*GateResult, error) {
	channels, err := s.settings.ForceChannels(ctx)
	if err != nil {
		return nil, err
	}

	result := &GateResult{}
	for _, ch := range channels {
		switch s.gateway.GetMembership(ctx, ch.Ref(), userID) {
		case transport.MemberStatusMember:
			continue
		case transport.MemberStatusNotMember:
			result.Missing = append(result.Missing, ch)
		default:
			// 频道配置问题会挡住正常用户，日志里必须能看出来
			logger.L().Warnf("Force channel unverifiable: name=%s, ref=%s, user_id=%d", ch.Name, ch.Ref(), userID)
			result.Unverified = append(result.Unverified, ch)
		}
	}
	return result, nil
}
