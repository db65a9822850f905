// Package cache provides result cache configuration options.
package cache

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/casegen/pkg/options"
	redisopts "github.com/kart-io/casegen/pkg/options/redis"
)

var _ options.IOptions = (*Options)(nil)

// Options 生成结果缓存配置。
type Options struct {
	// Enabled 是否启用缓存。
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// TTL 缓存过期时间。
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix 缓存键前缀。
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`

	// Redis Redis 连接配置。
	Redis *redisopts.Options `json:"redis" mapstructure:"redis"`
}

// NewOptions 创建默认缓存配置。
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		TTL:       1 * time.Hour,
		KeyPrefix: "casegen:result:",
		Redis:     redisopts.NewOptions(),
	}
}

// AddFlags 注册缓存相关 flag，Redis 连接参数位于 cache.redis.* 下。
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "cache"
	fs.BoolVar(&o.Enabled, p+".enabled", o.Enabled, "Cache successful generation results in Redis.")
	fs.DurationVar(&o.TTL, p+".ttl", o.TTL, "How long a cached generation result stays valid.")
	fs.StringVar(&o.KeyPrefix, p+".key-prefix", o.KeyPrefix, "Prefix applied to every result cache key.")

	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	o.Redis.AddFlags(fs, p)
}

// Validate 仅在启用缓存时校验。
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	if !o.Enabled {
		return nil
	}

	var errs []error
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must be positive, got %s", o.TTL))
	}
	if o.KeyPrefix == "" {
		errs = append(errs, fmt.Errorf("cache.key-prefix must not be empty"))
	}
	if o.Redis != nil {
		errs = append(errs, o.Redis.Validate()...)
	}
	return errs
}

// Complete 补全 Redis 默认配置。
func (o *Options) Complete() error {
	if o.Redis == nil {
		o.Redis = redisopts.NewOptions()
	}
	return o.Redis.Complete()
}
