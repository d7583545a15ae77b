package database

import (
	"fmt"
	"time"

	"stocksim-backend/internal/domain"
	"stocksim-backend/internal/pkg/constants"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedAccount struct {
	username string
	password string
	role     string
	balance  int64
}

var defaultAccounts = []seedAccount{
	{"admin", "admin123", constants.RoleAdmin, 1000000},
	{"user", "user123", constants.RoleUser, 100000},
}

type seedQuote struct {
	code   string
	name   string
	price  string
	change float64
}

// Seed inserts the default accounts and quote list into empty tables. Tables that already hold
// rows are left alone, so it is safe to call on every start.
func Seed(db *gorm.DB) error {
	var n int64
	if err := db.Model(&domain.Account{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		now := time.Now()
		for _, a := range defaultAccounts {
			hash, err := bcrypt.GenerateFromPassword([]byte(a.password), 10)
			if err != nil {
				return err
			}
			acc := domain.Account{
				Username:     a.username,
				PasswordHash: string(hash),
				Role:         a.role,
				Balance:      decimal.NewFromInt(a.balance),
				CreatedAt:    now,
			}
			if err := db.Create(&acc).Error; err != nil {
				return fmt.Errorf("seed account %s: %w", a.username, err)
			}
		}
		log.Info().Int("count", len(defaultAccounts)).Msg("seeded default accounts")
	}

	if err := db.Model(&domain.Quote{}).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		quotes := make([]domain.Quote, 0, len(defaultQuotes))
		for _, q := range defaultQuotes {
			quotes = append(quotes, domain.Quote{
				SecurityCode:  q.code,
				DisplayName:   q.name,
				LastPrice:     decimal.RequireFromString(q.price),
				ChangePercent: q.change,
				UpdatedAt:     time.Now(),
			})
		}
		if err := db.CreateInBatches(quotes, 50).Error; err != nil {
			return fmt.Errorf("seed quotes: %w", err)
		}
		log.Info().Int("count", len(quotes)).Msg("seeded default quotes")
	}
	return nil
}

var defaultQuotes = []seedQuote{
	{"sh.000016", "上证50", "4.82", -2.23},
	{"sh.600000", "浦发银行", "12.35", -0.08},
	{"sh.600009", "上海机场", "32.78", 1.24},
	{"sh.600016", "民生银行", "4.73", 0.21},
	{"sh.600018", "上港集团", "5.8", 0.52},
	{"sh.600019", "宝钢股份", "6.7", 0.3},
	{"sh.600028", "中国石化", "5.87", 2.09},
	{"sh.600029", "南方航空", "6.04", 0.33},
	{"sh.600030", "中信证券", "26.38", 1.66},
	{"sh.600031", "三一重工", "17.91", -1.49},
	{"sh.600036", "招商银行", "45.31", 1.43},
	{"sh.600048", "保利发展", "8.16", 0.49},
	{"sh.600050", "中国联通", "5.31", 0.0},
	{"sh.600056", "中国医药", "10.59", -0.28},
	{"sh.600061", "国投资本", "7.23", 1.69},
	{"sh.600104", "上汽集团", "16.04", 2.89},
	{"sh.600115", "中国东航", "4.04", 0.25},
	{"sh.600196", "复星医药", "25.76", -0.77},
	{"sh.600276", "恒瑞医药", "54.71", -0.76},
	{"sh.600309", "万华化学", "55.02", 0.71},
	{"sh.600340", "华夏幸福", "2.27", 0.89},
	{"sh.600438", "通威股份", "16.14", 1.13},
	{"sh.600487", "亨通光电", "15.37", 0.92},
	{"sh.600519", "贵州茅台", "1480.0", 0.34},
	{"sh.600536", "中国软件", "44.79", -0.02},
	{"sh.600547", "山东黄金", "30.15", 0.84},
	{"sh.600570", "恒生电子", "26.42", 0.46},
	{"sh.600585", "海螺水泥", "22.76", 0.18},
	{"sh.600588", "用友网络", "13.52", -1.6},
	{"sh.600600", "青岛啤酒", "73.14", 0.15},
	{"sh.600606", "绿地控股", "1.69", 0.6},
	{"sh.600690", "海尔智家", "25.15", 1.09},
	{"sh.600703", "三安光电", "12.08", 0.92},
	{"sh.600745", "闻泰科技", "32.65", -0.06},
	{"sh.600809", "山西汾酒", "177.1", 0.16},
	{"sh.600837", "海通证券", "8.5", -0.2},
	{"sh.600875", "东方电气", "16.49", -0.54},
	{"sh.600887", "伊利股份", "28.44", -0.39},
	{"sh.600893", "航发动力", "35.9", 1.61},
	{"sh.600900", "长江电力", "30.18", 0.5},
	{"sh.600941", "中国移动", "113.36", 0.04},
	{"sh.601012", "隆基绿能", "14.72", 2.94},
	{"sh.601088", "中国神华", "39.7", 0.13},
	{"sh.601111", "中国国航", "8.04", -0.62},
	{"sh.601138", "工业富联", "20.4", 1.19},
	{"sh.601166", "兴业银行", "23.98", 0.71},
	{"sh.601211", "国泰君安", "18.63", 0.65},
	{"sh.601229", "上海银行", "10.67", 0.38},
	{"sh.601288", "农业银行", "5.62", 0.0},
	{"sh.601318", "中国平安", "54.46", 1.93},
	{"sh.601328", "交通银行", "7.71", 0.13},
	{"sh.601360", "三六零", "10.31", 0.0},
	{"sh.601390", "中国中铁", "5.57", 0.72},
	{"sh.601398", "工商银行", "7.12", 0.28},
	{"sh.601601", "中国太保", "35.66", 2.24},
	{"sh.601628", "中国人寿", "40.68", 3.09},
	{"sh.601633", "长城汽车", "22.27", 0.27},
	{"sh.601668", "中国建筑", "5.72", 0.88},
	{"sh.601688", "华泰证券", "17.14", 1.96},
	{"sh.601800", "中国交建", "8.93", 1.13},
	{"sh.601857", "中国石油", "8.85", 1.49},
	{"sh.601878", "浙商证券", "10.75", 1.32},
	{"sh.601888", "中国中免", "61.38", 0.36},
	{"sh.601899", "紫金矿业", "18.66", 2.13},
	{"sh.601919", "中远海控", "16.02", 0.19},
	{"sh.601939", "建设银行", "8.92", -0.56},
	{"sh.601985", "中国核电", "9.35", -0.11},
	{"sh.601988", "中国银行", "5.43", -0.37},
	{"sh.603259", "药明康德", "65.05", 0.23},
	{"sh.603288", "海天味业", "41.73", 0.02},
	{"sh.603501", "韦尔股份", "127.03", 0.25},
	{"sh.603599", "广汇汽车", "11.43", 0.97},
	{"sh.603799", "华友钴业", "34.99", 3.31},
	{"sh.603993", "洛阳钼业", "7.73", 3.07},
	{"sh.688036", "传音控股", "74.79", -0.68},
	{"sh.688111", "金山办公", "279.85", 0.21},
	{"sh.688981", "中芯国际", "82.91", 0.72},
	{"sz.000001", "平安银行", "11.85", 0.34},
	{"sz.000002", "万科A", "6.57", -0.45},
	{"sz.000063", "中兴通讯", "32.09", 0.19},
	{"sz.000088", "盐田港", "4.67", -0.21},
	{"sz.000100", "TCL科技", "4.31", 1.17},
	{"sz.000333", "美的集团", "75.49", 0.59},
	{"sz.000538", "云南白药", "56.99", 0.69},
	{"sz.000568", "泸州老窖", "115.18", -0.09},
	{"sz.000651", "格力电器", "44.77", 0.27},
	{"sz.000725", "京东方A", "3.93", 0.77},
	{"sz.000750", "国元证券", "3.9", 1.56},
	{"sz.000776", "广发证券", "16.89", 2.8},
	{"sz.000786", "北新建材", "28.38", 0.53},
	{"sz.000858", "五粮液", "124.7", 0.25},
	{"sz.002007", "华兰生物", "16.4", 0.68},
	{"sz.002027", "分众传媒", "7.26", 0.14},
	{"sz.002142", "宁波银行", "26.86", 0.98},
	{"sz.002230", "科大讯飞", "48.1", 0.21},
	{"sz.002352", "顺丰控股", "46.9", 0.99},
	{"sz.002371", "北方华创", "416.75", -0.06},
	{"sz.002415", "海康威视", "28.12", -0.04},
	{"sz.002460", "赣锋锂业", "31.88", 2.34},
	{"sz.002475", "立讯精密", "31.97", 0.6},
	{"sz.002594", "比亚迪", "361.99", 2.51},
	{"sz.002673", "西部证券", "7.63", 1.33},
	{"sz.002714", "牧原股份", "44.38", 4.79},
	{"sz.002821", "凯莱英", "92.2", -2.35},
	{"sz.300059", "东方财富", "21.49", 2.48},
	{"sz.300122", "智飞生物", "19.79", -0.5},
	{"sz.300124", "汇川技术", "63.69", 0.84},
	{"sz.300223", "北京君正", "65.02", 0.49},
	{"sz.300274", "阳光电源", "64.19", 0.06},
	{"sz.300308", "中际旭创", "107.98", 0.19},
	{"sz.300347", "泰格医药", "52.56", -0.77},
	{"sz.300750", "宁德时代", "250.5", 3.03},
	{"sz.300759", "康龙化成", "25.06", -0.52},
	{"sz.300760", "迈瑞医疗", "237.32", 0.67},
	{"sz.399001", "深证成指", "10246.02", 0.83},
	{"sz.399006", "创业板指", "2061.87", 1.21},
	{"sz.399673", "创业板50", "2029.1", 1.3},
	{"sz.399905", "中证500", "5792.95", 0.61},
}
