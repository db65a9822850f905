package errors

import "google.golang.org/grpc/codes"

// 测试用例生成服务代码: 21 (业务服务范围 20-79)
// 错误码格式: AABBCCC
// - AA: 21 (CaseGen 服务)
// - BB: 类别代码
// - CCC: 序号

var (
	// 请求参数错误 (类别 01)
	ErrCaseGenInvalidRequest = Register(New(MakeCode(ServiceCaseGen, CategoryRequest, 1), 400, codes.InvalidArgument, "Invalid request parameters", "请求参数无效"))
	ErrEmptyInput            = Register(New(MakeCode(ServiceCaseGen, CategoryRequest, 2), 422, codes.InvalidArgument, "No readable text found in uploaded files.", "上传文件中未找到可读文本"))
	ErrNoChunks              = Register(New(MakeCode(ServiceCaseGen, CategoryRequest, 3), 422, codes.InvalidArgument, "Files loaded but no usable text chunks were created.", "文件已加载但未生成可用文本块"))

	// 证据相关错误 (类别 04 - Resource)
	ErrInsufficientEvidence = Register(New(MakeCode(ServiceCaseGen, CategoryResource, 1), 422, codes.FailedPrecondition, "Insufficient context to generate a reliable answer. Please upload more relevant documents.", "上下文不足, 请上传更相关的文档"))

	// 生成相关错误 (类别 07 - Internal)
	ErrGenerationParse    = Register(New(MakeCode(ServiceCaseGen, CategoryInternal, 1), 500, codes.Internal, "Model output could not be parsed", "模型输出无法解析"))
	ErrGroundingRejection = Register(New(MakeCode(ServiceCaseGen, CategoryInternal, 2), 500, codes.Internal, "Model declined to generate grounded test cases", "模型拒绝生成有依据的测试用例"))
	ErrIndexFailed        = Register(New(MakeCode(ServiceCaseGen, CategoryInternal, 3), 500, codes.Internal, "Chunk indexing failed", "文本块索引失败"))
	ErrExtractFailed      = Register(New(MakeCode(ServiceCaseGen, CategoryInternal, 4), 500, codes.Internal, "Text extraction failed", "文本提取失败"))

	// 外部服务错误 (类别 10 - Network)
	ErrTransport = Register(New(MakeCode(ServiceCaseGen, CategoryNetwork, 1), 502, codes.Unavailable, "Model service unavailable", "模型服务不可用"))
)
