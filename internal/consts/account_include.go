package consts

// GrpcAccountInclude 用于 gRPC 区块订阅过滤器，只推送包含 Jupiter 任一版本的交易
var GrpcAccountInclude = []string{
	JupiterV3ProgramStr,
	JupiterV4ProgramStr,
	JupiterV6ProgramStr,
}
