package shared

// User-facing messages. The service and its web front end speak Korean, so
// these are shown verbatim in the CLI and TUI.
const (
	MsgLoginFailed     = "로그인에 실패했습니다."
	MsgLoginError      = "로그인 중 오류가 발생했습니다."
	MsgRegisterSuccess = "회원가입이 완료되었습니다."
	MsgRegisterError   = "회원가입 중 오류가 발생했습니다."
	MsgRequiredFields  = "모든 항목을 입력해주세요."
	MsgLogoutSuccess   = "로그아웃되었습니다."
	MsgSessionExpired  = "세션이 만료되었습니다. 다시 로그인해주세요."

	MsgSelectFile  = "파일을 선택해주세요."
	MsgVideoOnly   = "비디오 파일만 업로드 가능합니다."
	MsgFileTooBig  = "파일 크기가 너무 큽니다."
	MsgUploadError = "업로드 중 오류가 발생했습니다."
	MsgNoFeedback  = "피드백이 없습니다."

	MsgNetworkError = "서버에 연결할 수 없습니다."
	MsgServerError  = "서버에서 오류가 발생했습니다."
)
