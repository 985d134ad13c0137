package source

// Flag 是来源类别的位掩码。
type Flag uint32

// Flag 返回来源对应的类别位。
func (s Source) Flag() Flag {
	return Flag(1) << s
}

// Has 判断掩码是否包含 other 中任意一位。
func (f Flag) Has(other Flag) bool {
	return f&other != 0
}

// Category 描述来源的类别位及与之互斥的类别。
type Category struct {
	Flags        Flag
	ExcludedWith Flag
}

// Kyber 内部会路由到 Uniswap 与 Eth2Dai，MultiBridge 会路由到 Uniswap，
// 同一路径中同时使用会重复消耗同一份流动性。
var exclusions = [numSources]Flag{
	Uniswap:     Kyber.Flag() | MultiBridge.Flag(),
	Eth2Dai:     Kyber.Flag(),
	Kyber:       Uniswap.Flag() | Eth2Dai.Flag(),
	MultiBridge: Uniswap.Flag(),
}

// Table 是固定的来源类别表。
type Table struct {
	mutualExclusion bool
}

// NewTable 创建类别表；mutualExclusion 为 false 时所有来源互不排斥。
func NewTable(mutualExclusion bool) Table {
	return Table{mutualExclusion: mutualExclusion}
}

// Lookup 返回来源的类别信息。
func (t Table) Lookup(s Source) Category {
	if !s.Valid() {
		return Category{}
	}
	c := Category{Flags: s.Flag()}
	if t.mutualExclusion {
		c.ExcludedWith = exclusions[s]
	}
	return c
}

// MutualExclusion 返回是否启用互斥约束。
func (t Table) MutualExclusion() bool {
	return t.mutualExclusion
}
