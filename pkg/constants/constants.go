package constants

import "fmt"

// Verdict 是一次受监督运行的最终判定，每次运行恰好一个。
type Verdict int

const (
	Success             Verdict = iota // 正常退出（任意退出码）
	TimeLimitExceeded                  // 时间超限
	MemoryLimitExceeded                // 内存超限
	RuntimeError                       // 运行错误
	OutputLimitExceeded                // 输出超限
)

var verdictNames = []string{"Success", "TimeLimitExceeded", "MemoryLimitExceeded", "RuntimeError", "OutputLimitExceeded"}

func (v Verdict) String() string {
	if v < 0 || int(v) >= len(verdictNames) {
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
	return verdictNames[v]
}

// ParseVerdict 把文本名称转换回 Verdict。
func ParseVerdict(name string) (Verdict, error) {
	for i, n := range verdictNames {
		if n == name {
			return Verdict(i), nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", name)
}

func (v Verdict) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(verdictNames) {
		return nil, fmt.Errorf("invalid verdict %d", int(v))
	}
	return []byte(verdictNames[v]), nil
}

func (v *Verdict) UnmarshalText(text []byte) error {
	parsed, err := ParseVerdict(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
