package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ StateStore       = (*MemoryStateStore)(nil)
	_ StateCodec       = JSONStateCodec{}
	_ RedirectPrompter = RedirectPrompterFunc(nil)
	_ OrderPayload     = RawOrder(nil)
	_ Clock            = SystemClock{}
	_ Clock            = ClockFunc(nil)
	_ ServiceErrorer   = (*ResponseError)(nil)
	_ ConfigProvider   = (*CfgxConfigProvider)(nil)
	_ OptionsResolver  = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
