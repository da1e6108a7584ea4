package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrLeaveNotFound   ErrCode = "LEAVE_NOT_FOUND"
	ErrAttemptNotFound ErrCode = "TEST_NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"

	// ─── Assessment ────────────────────────────────────────────────────
	ErrAttemptClosed   ErrCode = "TEST_CLOSED"
	ErrDuplicateAnswer ErrCode = "DUPLICATE_ANSWER"
	ErrUnknownQuestion ErrCode = "UNKNOWN_QUESTION"
	ErrRoundLocked     ErrCode = "ROUND_LOCKED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrAdminAccessOnly:
		return "Sumber daya ini terbatas untuk administrator."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrLeaveNotFound:
		return "Pengajuan izin tidak ditemukan."
	case ErrAttemptNotFound:
		return "Tes tidak ditemukan."
	case ErrConflict:
		return "Data telah diubah oleh permintaan lain. Silakan coba lagi."

	// ─── Assessment ────────────────────────────────────────────────────
	case ErrAttemptClosed:
		return "Tes ini sudah selesai dan tidak dapat diubah."
	case ErrDuplicateAnswer:
		return "Pertanyaan ini sudah dijawab."
	case ErrUnknownQuestion:
		return "Pertanyaan tidak termasuk dalam tes ini."
	case ErrRoundLocked:
		return "Pertanyaan ini berada di babak yang belum dibuka."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
