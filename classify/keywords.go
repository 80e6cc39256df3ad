package classify

// Curated keyword lists driving the channel and media heuristics. These are
// tuning data, not code: edits here change classifier behavior only.

// MinSubscribers is the floor below which a channel is rejected outright.
const MinSubscribers = 3000

// priorityKeywords are unambiguous self-identifying terms. A match accepts
// the channel immediately and bypasses every exclusion check.
var priorityKeywords = []string{
	"버츄얼 유튜버", "버튜버", "V-Youtuber",
}

// vtuberKeywords are direct category self-identification terms.
var vtuberKeywords = []string{
	"버튜버", "Vtuber", "VTuber",
}

// excludeTitleKeywords reject a channel when found in its title (unless a
// priority keyword also matched).
var excludeTitleKeywords = []string{
	"응원", "통계", "번역", "다시보기", "게임", "저장", "일상", "브이로그", "보관", "잼민",
	"TV", "코인", "주식", "Tj", "tv", "팬계정", "창고", "박스", "팬", "클립", "키리누키",
	"vlog", "유튜버", "youtube", "YOUTUBE", "유튜브", "코딩", "코드", "로블록스", "덕질",
	"음식", "기도", "교회", "여행", "VOD", "풀영상",
}

// excludeDescriptionKeywords reject a channel when found in its description
// (unless a priority keyword also matched).
var excludeDescriptionKeywords = []string{
	"팬클립", "팬영상", "팬채널", "저장소", "브이로그", "학년", "초등학", "중학", "고등학",
	"코딩", "로블록스", "덕질", "음식", "지식", "협찬", "비지니스", "광고", "병맛",
	"종합게임", "종겜", "기도", "교회", "목사", "여행", "애니메이션", "개그", "코미디",
	"뷰티", "fashion", "패션", "vlog", "게임채널", "연주", "강의", "더빙", "일상",
	"다시보기", "풀영상", "쇼츠", "서브채널", "그림", "팬페이지", "개그맨", "다이어트",
	"4K", "커뮤니티", "악세사리", "쇼핑몰", "경제", "키리누키", "채널 옮겼습니다",
	"클립", "넷플릭스", "게이머", "팬 채널", "게임방송", "리뷰", "예술", "Fashion",
	"자기관리", "예능", "희극인", "장애인", "실물",
}

// avatarKeywords mark virtual-persona vocabulary (case-insensitive).
var avatarKeywords = []string{
	"아바타", "캐릭터", "모델", "Live2D", "3D", "MMD",
	"가상", "버츄얼", "virtual", "avatar", "character",
	"리깅", "rigging", "모션캡처", "motion capture", "VRM",
}

// activityKeywords mark VTuber-typical activity vocabulary
// (case-insensitive).
var activityKeywords = []string{
	"데뷔", "debut", "첫방송", "방송시작", "신인",
	"소속", "기획사", "컴퍼니", "엔터", "프로덕션",
	"잡담", "방송", "노래", "singing", "stream",
	"첫방", "데뷔방", "콜라보", "collaboration",
}

// contentPatterns are matched against a channel's recent upload titles;
// three or more hits count as a positive signal.
var contentPatterns = []string{
	"잡담", "방송", "게임", "노래", "singing", "stream",
	"첫방", "데뷔방", "콜라보", "collaboration", "잡담방",
	"방송시작", "live", "라이브", "스트림",
}

// vtuberCompanies is the curated agency allow-list; a description naming
// one accepts the channel.
var vtuberCompanies = []string{
	"이세계아이돌", "V-LUP", "RE:REVOLUTION", "VRECORD", "V&U", "일루전 라이브",
	"버츄얼 헤르츠", "V-llage", "레븐", "스타게이저", "싸이코드", "PLAVE", "러브다이아",
	"미츄", "스텔라이브", "뻐스시간", "스타데이즈", "블루점프", "팔레트", "AkaiV Studio",
	"리스텔라", "에스더", "포더모어", "스코시즘", "큐버스", "라이브루리", "플레이 바이 스쿨",
	"VLYZ.", "Artisons.", "HONEYZ", "PROJECT Serenity", "위싱 라이브", "브이아이",
	"몽상컴퍼니", "스테이터스", "아쿠아벨", "Plan.B Music", "멜로데이즈", "Re:AcT KR",
	"GRIM PRODUCTION.", "PJX.", "D-ESTER", "방과후버튜버", "베리타", "스타드림컴퍼니",
	"HANAVI", "UR:L", "Priz", "브이퍼리", "크로아", "하데스", "ACAXIA.",
}

// songTitleKeywords mark a video title as song-related (case-insensitive).
var songTitleKeywords = []string{
	"music", "song", "cover", "original", "official", "mv", "뮤직", "노래", "커버",
}

// songDescriptionKeywords mark a video description as song-production
// related (case-insensitive).
var songDescriptionKeywords = []string{
	"lyrics", "가사", "prod", "작곡", "편곡", "믹싱", "mastering", "vocal", "inst",
	"spotify", "melon", "apple music",
}

// DefaultQueries is the curated discovery search list: generic category
// terms plus the known agency names.
var DefaultQueries = append([]string{
	"버튜버", "Vtuber", "버츄얼 유튜버", "버츄버",
}, vtuberCompanies...)
