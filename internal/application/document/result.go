package document

// storeOutcome 单次存储调用的结果分类
// 向量库失败不推翻关系库写入，这一策略通过显式的结果分支表达
type storeOutcome int

const (
	// outcomeOK 调用成功
	outcomeOK storeOutcome = iota
	// outcomePartial 派生存储失败，主路径不受影响
	outcomePartial
	// outcomeFatal 权威存储失败，整个操作失败
	outcomeFatal
)

// storeResult 存储调用结果
type storeResult struct {
	outcome storeOutcome
	detail  string
}

func ok() storeResult {
	return storeResult{outcome: outcomeOK}
}

func partial(err error) storeResult {
	return storeResult{outcome: outcomePartial, detail: err.Error()}
}

func fatal(err error) storeResult {
	return storeResult{outcome: outcomeFatal, detail: err.Error()}
}
